package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("db down")
	err := Wrap(CodeDependency, cause, "load cart")

	if !stdErrors.Is(err, cause) {
		t.Fatal("expected wrapped error to unwrap to cause")
	}
	if err.Code() != CodeDependency {
		t.Fatalf("unexpected code %s", err.Code())
	}
	if err.Error() != "DEPENDENCY_ERROR: load cart" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestIsCodeThroughFmtWrapping(t *testing.T) {
	inner := New(CodeInsufficientStock, "Insufficient stock for product.")
	outer := fmt.Errorf("checkout: %w", inner)

	if !IsCode(outer, CodeInsufficientStock) {
		t.Fatal("expected IsCode to find insufficient stock")
	}
	if IsCode(outer, CodeEmptyCart) {
		t.Fatal("did not expect empty cart code")
	}
	if IsCode(stdErrors.New("plain"), CodeInternal) {
		t.Fatal("plain errors carry no code")
	}
}

func TestMetadataFor(t *testing.T) {
	cases := map[Code]int{
		CodeInsufficientStock: http.StatusConflict,
		CodeEmptyCart:         http.StatusUnprocessableEntity,
		CodeStateConflict:     http.StatusUnprocessableEntity,
		CodeForbidden:         http.StatusForbidden,
		CodeNotFound:          http.StatusNotFound,
		Code("bogus"):         http.StatusInternalServerError,
	}
	for code, status := range cases {
		if got := MetadataFor(code).HTTPStatus; got != status {
			t.Fatalf("MetadataFor(%s) status = %d, want %d", code, got, status)
		}
	}
}

func TestDumpCollectsChain(t *testing.T) {
	err := fmt.Errorf("outer: %w", Wrap(CodeInternal, stdErrors.New("root"), "middle"))
	dump := Dump(err)

	if dump.Code != CodeInternal {
		t.Fatalf("expected internal code, got %s", dump.Code)
	}
	if len(dump.Chain) != 3 {
		t.Fatalf("expected 3 chain entries, got %d: %v", len(dump.Chain), dump.Chain)
	}
}

func TestDumpFieldsOmitsEmptyPostgresDetails(t *testing.T) {
	fields := Dump(New(CodeEmptyCart, "Cart is empty.")).Fields()

	if fields["error_code"] != "EMPTY_CART" {
		t.Fatalf("unexpected error_code %v", fields["error_code"])
	}
	if _, ok := fields["pg_code"]; ok {
		t.Fatal("did not expect pg_code for non-postgres error")
	}
}
