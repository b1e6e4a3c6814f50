package support

// unitFixups translates raw backend unit strings to display-friendly ones.
// Grounded on the original project's _FIX_UNIT_REPLACE table.
var unitFixups = map[string]string{
	`"`:     "",
	"100%":  "%",
	"% rF":  "%",
	"degree": "°C",
	"Lux":   "lx",
	"m3":    "m³",
}

// unitByParameter overrides CosmeticUnit's result for parameters whose
// backend unit is empty or misleading. Grounded on the original project's
// _FIX_UNIT_BY_PARAM table.
var unitByParameter = map[string]string{
	"ACTUAL_TEMPERATURE":                    "°C",
	"CURRENT_ILLUMINATION":                  "lx",
	"HUMIDITY":                              "%",
	"ILLUMINATION":                          "lx",
	"LEVEL":                                 "%",
	"MASS_CONCENTRATION_PM_10_24H_AVERAGE":  "µg/m³",
	"MASS_CONCENTRATION_PM_1_24H_AVERAGE":   "µg/m³",
	"MASS_CONCENTRATION_PM_2_5_24H_AVERAGE": "µg/m³",
	"OPERATING_VOLTAGE":                     "V",
	"RSSI_DEVICE":                           "dBm",
	"RSSI_PEER":                             "dBm",
	"SUNSHINEDURATION":                      "min",
	"WIND_DIRECTION":                        "°",
	"WIND_DIRECTION_RANGE":                  "°",
}

// CosmeticUnit returns the display unit for a parameter given the backend's
// raw unit string, applying the per-parameter override table first and
// falling back to the raw-string fixup table, then the raw unit unchanged.
func CosmeticUnit(parameter, rawUnit string) string {
	if u, ok := unitByParameter[parameter]; ok {
		return u
	}
	if u, ok := unitFixups[rawUnit]; ok {
		return u
	}
	return rawUnit
}
