// Package domain models the archived observations of the personal
// space-weather-station (PSWS) network and decodes them into one canonical
// record shape.
//
// # Data Source
//
// Each station uploads one container file per day. Magnetometer data lives in
// "<station>/magData" as zip archives named after the day, e.g.
// "OBS2025-10-21T00:00.zip" or "OBS-20251021-0000.zip". The archive members
// are text fragments of one logical stream and are concatenated in member
// name order. Doppler data lives in "<station>/csvData" as plain CSV files
// whose names start with the day, e.g. "2020-08-07_S000001_doppler.csv".
//
// # Row Encodings
//
// Three magnetometer encodings exist, and a file only ever uses one:
//
//	JSON (format 1):
//	  {"ts": "21 Oct 2025 04:01:59", "rt": 32.5, "lt": 41.69,
//	   "x": -45676.67, "y": -13284.67, "z": 16150.67,
//	   "rx": -68515, "ry": -19927, "rz": 24226, "Tm": 50236.2845}
//	Legacy, nine fields (format 2):
//	  "21 Oct 2022 04:01:59", x, y, z, rx, ry, rz, rt, lt
//	Legacy, ten fields (format 3):
//	  "21 Oct 2022 04:01:59", x, y, z, rx, ry, rz, rt, lt, Tm
//
// Format 2 predates the Tm metric; decoded records carry [MissingTm]
// (-9999999) in its place.
//
// Doppler rows are "<ISO time>, Freq, Vpk[, ...]"; lines that do not start
// with a four-digit year are headers and carry no data.
//
// # Time
//
// Instrument timestamps use "DD Mon YYYY HH:MM:SS" in UTC. All output uses
// the HAPI form "YYYY-MM-DDTHH:MM:SSZ" at second precision, which sorts
// lexically in time order.
//
// # Dataset Ids
//
// A dataset id is "<station>/<type>" with type mag, doppler, or drf. The
// type selects the subdirectory (magData, csvData, none), the container
// extension, the file name date convention and the parameter groups.
package domain
