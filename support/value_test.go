package support

import (
	"testing"

	"github.com/mdzio/go-hmcentral/errs"
	"github.com/mdzio/go-hmcentral/itf"
)

func TestCoerceValueBool(t *testing.T) {
	v, err := CoerceValue(itf.ParamTypeBool, true)
	if err != nil || v != true {
		t.Fatalf("unexpected result: %v, %v", v, err)
	}
	v, err = CoerceValue(itf.ParamTypeBool, "true")
	if err != nil || v != true {
		t.Fatalf("unexpected result: %v, %v", v, err)
	}
	if _, err := CoerceValue(itf.ParamTypeBool, 123); err == nil || !errs.Is(err, errs.ClientError) {
		t.Fatal("expected ClientError for non-bool input")
	}
}

func TestCoerceValueFloat(t *testing.T) {
	v, err := CoerceValue(itf.ParamTypeFloat, 12)
	if err != nil || v != float64(12) {
		t.Fatalf("unexpected result: %v, %v", v, err)
	}
	v, err = CoerceValue(itf.ParamTypeFloat, "3.5")
	if err != nil || v != 3.5 {
		t.Fatalf("unexpected result: %v, %v", v, err)
	}
}

func TestCoerceValueInteger(t *testing.T) {
	v, err := CoerceValue(itf.ParamTypeInteger, float64(7))
	if err != nil || v != 7 {
		t.Fatalf("unexpected result: %v, %v", v, err)
	}
	v, err = CoerceValue(itf.ParamTypeEnum, "2")
	if err != nil || v != 2 {
		t.Fatalf("unexpected result: %v, %v", v, err)
	}
}

func TestCoerceValueString(t *testing.T) {
	v, err := CoerceValue(itf.ParamTypeString, 42)
	if err != nil || v != "42" {
		t.Fatalf("unexpected result: %v, %v", v, err)
	}
}
