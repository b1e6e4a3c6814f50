// Package hub implements the two entity kinds not bound to a device: system
// variables and stored programs. Both are reconciled from the backend's
// JSON-RPC inventory rather than pushed by an event stream, so there is no
// HandleEvent here, only a periodic Refresh.
package hub

// Kind selects which control a SystemVariable is presented as, derived
// from its backend type and its extended-dashboard marker.
type Kind int

const (
	KindBinary Kind = iota
	KindSwitch
	KindSelect
	KindNumber
	KindText
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindBinary:
		return "Binary"
	case KindSwitch:
		return "Switch"
	case KindSelect:
		return "Select"
	case KindNumber:
		return "Number"
	case KindText:
		return "Text"
	default:
		return "Unknown"
	}
}

// kindFor maps a backend sysvar type (ALARM, LOGIC, LIST, NUMBER, STRING)
// plus its extended-dashboard marker to a Kind. ALARM/LOGIC become Switch
// once marked extended (writable), Binary otherwise (read-only); LIST
// always becomes Select, NUMBER always Number, STRING always Text —
// extended only gates writability for those three, not which Kind they get.
func kindFor(sysVarType string, extended bool) Kind {
	switch sysVarType {
	case "ALARM", "LOGIC":
		if extended {
			return KindSwitch
		}
		return KindBinary
	case "LIST":
		return KindSelect
	case "NUMBER":
		return KindNumber
	default:
		return KindText
	}
}
