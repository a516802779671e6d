package errcode

import "testing"

func TestParseErrorCodeRoundTrip(t *testing.T) {
	s := ErrorCodeDuplicateDefinition.String()
	got := ParseErrorCode(s)
	if got != ErrorCodeDuplicateDefinition {
		t.Fatalf("expected round trip, got %v for %q", got, s)
	}
}

func TestParseErrorCodeUnknown(t *testing.T) {
	if got := ParseErrorCode("NOT_A_REAL_CODE"); got != ErrorCodeUnknown {
		t.Fatalf("expected ErrorCodeUnknown, got %v", got)
	}
}

func TestWithArgsFormatsDetail(t *testing.T) {
	err := ErrorCodeTargetDoesNotExist.WithArgs("gh.user.repo.foo")
	if err.Code != ErrorCodeTargetDoesNotExist {
		t.Fatalf("wrong code: %v", err.Code)
	}
	if err.Error() == "" {
		t.Fatalf("expected non-empty error string")
	}
}

func TestErrorsAggregatesMultiple(t *testing.T) {
	errs := Errors{
		ErrorCodeParsingError.WithArgs("line 3"),
		ErrorCodeDAGHasCycle.WithArgs("a -> b -> a"),
	}
	msg := errs.Error()
	if msg == "" {
		t.Fatalf("expected non-empty aggregate message")
	}
}

func TestMarshalUnmarshalText(t *testing.T) {
	text, err := ErrorCodeCyclicImport.MarshalText()
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	var ec ErrorCode
	if err := ec.UnmarshalText(text); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if ec != ErrorCodeCyclicImport {
		t.Fatalf("expected round trip, got %v", ec)
	}
}
