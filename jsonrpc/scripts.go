package jsonrpc

// bundledScripts holds ReGaHss scripts shipped with this library, keyed by
// the name passed to Client.PostScript. ##name## placeholders are
// substituted with the stringified params before the script is sent to
// ReGa.runScript. This mirrors the teacher's tclrega.exe templates in
// script/script.go, translated from Go's text/template {{ . }} syntax to
// the plain ##name## substitution the backend's JSON-RPC runScript endpoint
// expects.
var bundledScripts = map[string]string{
	// serviceMessages lists currently active service/fault messages with
	// their set timestamp, which Room.getAll/Device.listAllDetail don't
	// carry.
	"serviceMessages": `! Enumerating active service messages
object eobj = dom.GetObject(ID_SERVICES);
var result = "";
if (eobj) {
	string id;
	foreach (id, eobj.EnumUsedIDs()) {
		object sobj = dom.GetObject(id);
		if (sobj) {
			result = result # sobj.Address() # "\t" # sobj.Name() # "\t" # sobj.Timestamp().ToInteger() # "\n";
		}
	}
}
Write(result.ToString().StrValueEncode());`,

	// setSysVarByName sets a system variable identified by name to a given
	// value, for backends where SysVar.setBool/SysVar.setFloat are
	// insufficient (e.g. STRING or ENUM variables).
	"setSysVarByName": `! Writing system variable ##varName##
var sv = dom.GetObject("##varName##");
if (sv) {
	sv.State(##value##);
	WriteLine("OK");
} else {
	WriteLine("Not found");
}`,

	// sysVarExtMarkers returns, as a JSON object keyed by system variable
	// id, whether the variable's internal dashboard flag is set. CCU JSON-RPC
	// has no field for this on SysVar.getAll itself.
	"sysVarExtMarkers": `! Enumerating extended system variable markers
object eobj = dom.GetObject(ID_SYSTEM_VARIABLES);
string result = "{";
boolean first = true;
if (eobj) {
	string id;
	foreach (id, eobj.EnumIDs()) {
		object obj = dom.GetObject(id);
		if (obj) {
			if (!first) { result = result # ","; }
			first = false;
			result = result # "\"" # id # "\":" # (obj.UserAccessRights().Contains("dashboard") ? "true" : "false");
		}
	}
}
result = result # "}";
Write(result.StrValueEncode());`,
}
