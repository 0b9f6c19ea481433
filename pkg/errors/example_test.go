// Package errors provides examples of structured error handling in nebula-ml.
package errors_test

import (
	"fmt"
	"io/fs"

	"github.com/ajitpratap0/nebula-ml/pkg/errors"
)

// Example demonstrates basic error creation and details.
func Example() {
	err := errors.New(errors.ErrorTypeConfig, "estimator RandomForest not found").
		WithDetail("kind", "estimator").
		WithDetail("key", "RandomForest")

	fmt.Println(err.Error())

	// Output:
	// config: estimator RandomForest not found
}

// ExampleWrap shows how store failures keep their cause.
func ExampleWrap() {
	err := errors.Wrap(fs.ErrNotExist, errors.ErrorTypeNotFound, "model m1 not found").
		WithDetail("model", "m1")

	if errors.IsType(err, errors.ErrorTypeNotFound) {
		fmt.Println("This is a not found error")
	}
	fmt.Println(err)

	// Output:
	// This is a not found error
	// not_found: model m1 not found: file does not exist
}

// ExampleNewf demonstrates formatted messages.
func ExampleNewf() {
	err := errors.Newf(errors.ErrorTypeSchema, "row %d has %d columns, expected %d", 3, 2, 4)
	fmt.Println(err)

	// Output:
	// schema: row 3 has 2 columns, expected 4
}

// ExampleIsCallerError shows how transports separate request faults from
// service faults.
func ExampleIsCallerError() {
	parseErr := errors.New(errors.ErrorTypeParse, "token \"a\" is missing '='")
	fileErr := errors.New(errors.ErrorTypeFile, "failed to write snapshot")

	fmt.Println(errors.IsCallerError(parseErr))
	fmt.Println(errors.IsCallerError(fileErr))
	fmt.Println(errors.IsCallerError(fmt.Errorf("plain")))

	// Output:
	// true
	// false
	// false
}

// Example_errorChain shows how contexts stack while the outermost type wins.
func Example_errorChain() {
	var err error = errors.New(errors.ErrorTypeParse, "value \"abc\" is not an int").
		WithDetail("token", "n_estimators=abc|int")

	err = errors.Wrap(err, errors.ErrorTypeConfig, "invalid estimator arguments").
		WithDetail("model", "m1")

	fmt.Println(err)
	fmt.Println(errors.TypeOf(err))

	// Output:
	// config: invalid estimator arguments: parse: value "abc" is not an int
	// config
}
