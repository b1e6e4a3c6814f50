package hub

import "testing"

func TestKindForAlarmAndLogic(t *testing.T) {
	if kindFor("ALARM", false) != KindBinary {
		t.Fatal("expected a non-extended ALARM to be Binary")
	}
	if kindFor("ALARM", true) != KindSwitch {
		t.Fatal("expected an extended ALARM to be Switch")
	}
	if kindFor("LOGIC", true) != KindSwitch {
		t.Fatal("expected an extended LOGIC to be Switch")
	}
}

func TestKindForListNumberString(t *testing.T) {
	if kindFor("LIST", false) != KindSelect {
		t.Fatal("expected LIST to be Select")
	}
	if kindFor("NUMBER", false) != KindNumber {
		t.Fatal("expected NUMBER to be Number")
	}
	if kindFor("STRING", false) != KindText {
		t.Fatal("expected STRING to be Text")
	}
}
