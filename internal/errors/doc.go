// Package errors provides structured, actionable diagnostics for loom's
// configuration loader and command line tools.
//
// Every diagnostic carries:
//   - A stable code (e.g. "E080") that maps to a registered template
//   - A short message and a longer explanation in plain language
//   - An optional file location with surrounding source lines
//   - A fix suggestion, an example, and a documentation link
//
// # Error Categories
//
// Codes are grouped into categories:
//   - runtime: reactive graph and scheduler errors (cycles, disposed scopes)
//   - render: component and tree errors (nil renders, duplicate keys)
//   - protocol: wire errors (malformed frames, version mismatch)
//   - journal: replay and archive errors
//   - config: loom.json errors
//   - cli: command usage errors
//
// # Usage
//
//	err := errors.New("E080").
//	    WithLocationFromOffset("loom.json", data, syntaxErr.Offset).
//	    WithSuggestion("Check loom.json for a trailing comma")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E080: Invalid loom.json
//	//
//	//   loom.json:4:18
//	//
//	//      2 │   "server": {
//	//      3 │     "addr": ":8080",
//	//   →  4 │     "maxSessions": ,
//	//        │                  ^
//	//      5 │   },
//	//      6 │   "journal": {
//	//
//	//   Hint: Check loom.json for a trailing comma
//	//
//	//   Learn more: https://loom-ui.dev/docs/errors/E080
package errors
