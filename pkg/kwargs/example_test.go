package kwargs_test

import (
	"fmt"

	"github.com/ajitpratap0/nebula-ml/pkg/kwargs"
)

func ExampleParse() {
	args, err := kwargs.Parse("n_estimators=10, criterion=gini, max_features=0.5, bootstrap=true, random_state=7|str")
	if err != nil {
		panic(err)
	}
	for _, key := range args.Keys() {
		v, _ := args.Get(key)
		fmt.Printf("%s %s %s\n", key, v.Kind(), v)
	}

	// Output:
	// n_estimators int 10
	// criterion str gini
	// max_features float 0.5
	// bootstrap bool true
	// random_state str 7
}

func ExampleArgs_Format() {
	args := kwargs.MustParse("test_size=0.2, debug=TRUE, compress=3")
	fmt.Println(args.Format())

	// Output:
	// test_size=0.2|float, debug=true|bool, compress=3|int
}
