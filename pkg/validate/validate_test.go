package validate

import (
	"errors"
	"strings"
	"testing"
)

const (
	owner    = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
	usdcMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	solMint  = "So11111111111111111111111111111111111111112"
	orderKey = "7dHbWXmci3dT8UFYWYZweBLXgycu7Y3iL6trKn1Y7ARj"
)

func validCreate() *CreateOrderRequest {
	return &CreateOrderRequest{
		Owner:      owner,
		InAmount:   "1000000",
		OutAmount:  "5000000",
		InputMint:  usdcMint,
		OutputMint: solMint,
	}
}

func asValidationError(t *testing.T, err error) *ValidationError {
	t.Helper()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T: %v", err, err)
	}
	return verr
}

func TestValidateCreateOrderFields_Valid(t *testing.T) {
	if err := ValidateCreateOrderFields(validCreate()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateCreateOrderFields_ReportsEveryMissingField(t *testing.T) {
	err := ValidateCreateOrderFields(&CreateOrderRequest{})
	verr := asValidationError(t, err)

	for _, field := range []string{"owner", "inAmount", "outAmount", "inputMint", "outputMint"} {
		if !verr.Has(field) {
			t.Errorf("missing violation for %s", field)
		}
		if !strings.Contains(err.Error(), `"`+field+`" is required`) {
			t.Errorf("message does not mention %s: %s", field, err)
		}
	}
	if len(verr.Fields) != 5 {
		t.Errorf("violations = %d, want 5", len(verr.Fields))
	}
	if !strings.HasPrefix(err.Error(), "Request invalid: ") {
		t.Errorf("unexpected message prefix: %s", err)
	}
}

func TestValidateCreateOrderFields_EachFieldAlone(t *testing.T) {
	cases := []struct {
		field  string
		mutate func(r *CreateOrderRequest)
		rule   string
	}{
		{"owner", func(r *CreateOrderRequest) { r.Owner = "" }, "required"},
		{"owner", func(r *CreateOrderRequest) { r.Owner = "not-a-key" }, "pubkey"},
		{"inAmount", func(r *CreateOrderRequest) { r.InAmount = "" }, "required"},
		{"inAmount", func(r *CreateOrderRequest) { r.InAmount = "-5" }, "number"},
		{"outAmount", func(r *CreateOrderRequest) { r.OutAmount = "1.5" }, "number"},
		{"inputMint", func(r *CreateOrderRequest) { r.InputMint = usdcMint[:20] }, "min"},
		{"outputMint", func(r *CreateOrderRequest) { r.OutputMint = strings.Repeat("z", 44) }, "pubkey"},
	}

	for _, c := range cases {
		req := validCreate()
		c.mutate(req)

		verr := asValidationError(t, ValidateCreateOrderFields(req))
		if len(verr.Fields) != 1 {
			t.Errorf("%s/%s: violations = %v, want exactly one", c.field, c.rule, verr.Fields)
			continue
		}
		if got := verr.Fields[0]; got.Field != c.field || got.Rule != c.rule {
			t.Errorf("violation = %s/%s, want %s/%s", got.Field, got.Rule, c.field, c.rule)
		}
	}
}

func TestValidateCreateOrderFields_OwnerHasNoMinimumLength(t *testing.T) {
	req := validCreate()
	req.Owner = "11111111111111111111111111111111" // 32 chars, still a valid key
	if err := ValidateCreateOrderFields(req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateCancelOrderFields(t *testing.T) {
	if err := ValidateCancelOrderFields(&CancelOrderRequest{Owner: owner, OrderPubKey: orderKey}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	short := owner[:MinKeyLength-1]
	err := ValidateCancelOrderFields(&CancelOrderRequest{Owner: short, OrderPubKey: short})
	verr := asValidationError(t, err)
	if !verr.Has("owner") || !verr.Has("orderPubKey") {
		t.Errorf("expected both fields reported, got %v", verr.Fields)
	}
	if !strings.Contains(err.Error(), "at least 40 characters") {
		t.Errorf("unexpected message: %s", err)
	}

	// long enough but not a key
	verr = asValidationError(t, ValidateCancelOrderFields(&CancelOrderRequest{
		Owner:       owner,
		OrderPubKey: strings.Repeat("0", 44),
	}))
	if len(verr.Fields) != 1 || verr.Fields[0].Rule != "pubkey" {
		t.Errorf("unexpected violations: %v", verr.Fields)
	}
}

func TestDecodeCreateOrder(t *testing.T) {
	body := `{"owner":"` + owner + `","inAmount":1000000,"outAmount":"5000000","inputMint":"` + usdcMint + `","outputMint":"` + solMint + `"}`
	req, err := DecodeCreateOrder(strings.NewReader(body))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if req.InAmount.String() != "1000000" || req.OutAmount.String() != "5000000" {
		t.Errorf("amounts = %s/%s", req.InAmount, req.OutAmount)
	}
}

func TestDecodeCreateOrder_TypeErrorAndSchemaErrors(t *testing.T) {
	body := `{"owner":"` + owner + `","inAmount":true,"outAmount":5,"inputMint":"short"}`
	_, err := DecodeCreateOrder(strings.NewReader(body))
	verr := asValidationError(t, err)

	want := map[string]string{"inAmount": "type", "inputMint": "min", "outputMint": "required"}
	if len(verr.Fields) != len(want) {
		t.Fatalf("violations = %v, want %d", verr.Fields, len(want))
	}
	for _, f := range verr.Fields {
		if want[f.Field] != f.Rule {
			t.Errorf("unexpected violation %s/%s", f.Field, f.Rule)
		}
	}
}

func TestDecodeCancelOrder_Malformed(t *testing.T) {
	for _, body := range []string{"{", "[1,2]", "nope"} {
		verr := asValidationError(t, func() error { _, err := DecodeCancelOrder(strings.NewReader(body)); return err }())
		if !verr.Has("body") {
			t.Errorf("%q: expected body violation, got %v", body, verr.Fields)
		}
	}

	// empty body behaves like an empty object
	_, err := DecodeCancelOrder(strings.NewReader(""))
	verr := asValidationError(t, err)
	if !verr.Has("owner") || !verr.Has("orderPubKey") {
		t.Errorf("expected required violations, got %v", verr.Fields)
	}
}

func TestDecodeCreateOrder_NonNumericAmountKeepsOtherViolations(t *testing.T) {
	_, err := DecodeCreateOrder(strings.NewReader(`{"inAmount":"abc"}`))
	verr := asValidationError(t, err)

	want := map[string]string{
		"inAmount":   "type",
		"owner":      "required",
		"outAmount":  "required",
		"inputMint":  "required",
		"outputMint": "required",
	}
	if len(verr.Fields) != len(want) {
		t.Fatalf("violations = %v, want %d", verr.Fields, len(want))
	}
	for _, f := range verr.Fields {
		if want[f.Field] != f.Rule {
			t.Errorf("unexpected violation %s/%s", f.Field, f.Rule)
		}
	}
	if !strings.Contains(err.Error(), `"inAmount" must be a number`) {
		t.Errorf("message does not name inAmount: %s", err)
	}
}

func TestDecodeCreateOrder_EveryMistypedFieldReported(t *testing.T) {
	body := `{"owner":1,"inputMint":2,"inAmount":"10","outAmount":"20","outputMint":"` + solMint + `"}`
	_, err := DecodeCreateOrder(strings.NewReader(body))
	verr := asValidationError(t, err)

	if len(verr.Fields) != 2 {
		t.Fatalf("violations = %v, want 2", verr.Fields)
	}
	for _, f := range verr.Fields {
		if (f.Field != "owner" && f.Field != "inputMint") || f.Rule != "type" {
			t.Errorf("unexpected violation %s/%s", f.Field, f.Rule)
		}
	}
}

func TestDecodeCancelOrder_UnknownKeys(t *testing.T) {
	body := `{"owner":"` + owner + `","orderPubKey":"` + orderKey + `","secret":"x","Owner":"y"}`
	_, err := DecodeCancelOrder(strings.NewReader(body))
	verr := asValidationError(t, err)

	if len(verr.Fields) != 2 || !verr.Has("secret") || !verr.Has("Owner") {
		t.Fatalf("violations = %v, want secret and Owner", verr.Fields)
	}
	for _, f := range verr.Fields {
		if f.Rule != "unknown" {
			t.Errorf("%s: rule = %s, want unknown", f.Field, f.Rule)
		}
	}
	if !strings.Contains(err.Error(), `"secret" is not allowed`) {
		t.Errorf("unexpected message: %s", err)
	}
}
