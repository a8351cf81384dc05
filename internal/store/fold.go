package store

import (
	"database/sql/driver"
	"fmt"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
	"modernc.org/sqlite"
)

// foldFunc is the SQL name of foldText. SQLite's own lower() only folds
// ASCII.
const foldFunc = "wf_fold"

// foldText folds case over the whole of Unicode and composes the result, so
// "ÉTÉ" and "été" both match "été".
func foldText(s string) string {
	// A Caser keeps state between calls and is not shared.
	return norm.NFC.String(cases.Fold().String(norm.NFC.String(s)))
}

// registerFold installs foldFunc in the driver once per process.
var registerFold = sync.OnceValue(func() error {
	err := sqlite.RegisterDeterministicScalarFunction(foldFunc, 1,
		func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			switch v := args[0].(type) {
			case nil:
				return nil, nil
			case string:
				return foldText(v), nil
			case []byte:
				return foldText(string(v)), nil
			default:
				return nil, fmt.Errorf("%s: unsupported argument %T", foldFunc, v)
			}
		})
	if err != nil {
		return fmt.Errorf("register %s: %w", foldFunc, err)
	}
	return nil
})
