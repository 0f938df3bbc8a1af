package tfunc

import (
	"fmt"
	"reflect"
)

// number normalizes the numeric kinds text/template may hand us.
type number struct {
	i     int64
	f     float64
	float bool
}

func toNumber(v interface{}) (number, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return number{i: rv.Int(), f: float64(rv.Int())}, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return number{i: int64(rv.Uint()), f: float64(rv.Uint())}, nil
	case reflect.Float32, reflect.Float64:
		return number{f: rv.Float(), float: true}, nil
	}
	return number{}, fmt.Errorf("unknown type for %q (%T)", v, v)
}

// arith applies op to b and a (in pipe order, a is the piped value).
func arith(name string, b, a interface{},
	ints func(x, y int64) (int64, error),
	floats func(x, y float64) (float64, error),
) (interface{}, error) {
	x, err := toNumber(a)
	if err != nil {
		return nil, fmt.Errorf("%s: %s", name, err)
	}
	y, err := toNumber(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %s", name, err)
	}
	if x.float || y.float {
		return floats(x.f, y.f)
	}
	return ints(x.i, y.i)
}

// add returns the sum of a and b.
func add(b, a interface{}) (interface{}, error) {
	return arith("add", b, a,
		func(x, y int64) (int64, error) { return x + y, nil },
		func(x, y float64) (float64, error) { return x + y, nil })
}

// subtract returns the difference of b from a.
func subtract(b, a interface{}) (interface{}, error) {
	return arith("subtract", b, a,
		func(x, y int64) (int64, error) { return x - y, nil },
		func(x, y float64) (float64, error) { return x - y, nil })
}

// multiply returns the product of a and b.
func multiply(b, a interface{}) (interface{}, error) {
	return arith("multiply", b, a,
		func(x, y int64) (int64, error) { return x * y, nil },
		func(x, y float64) (float64, error) { return x * y, nil })
}

// divide returns the division of a by b.
func divide(b, a interface{}) (interface{}, error) {
	return arith("divide", b, a,
		func(x, y int64) (int64, error) {
			if y == 0 {
				return 0, fmt.Errorf("divide: division by 0")
			}
			return x / y, nil
		},
		func(x, y float64) (float64, error) {
			if y == 0 {
				return 0, fmt.Errorf("divide: division by 0")
			}
			return x / y, nil
		})
}

// modulo returns the modulo of a by b. Integers only.
func modulo(b, a interface{}) (interface{}, error) {
	return arith("modulo", b, a,
		func(x, y int64) (int64, error) {
			if y == 0 {
				return 0, fmt.Errorf("modulo: division by 0")
			}
			return x % y, nil
		},
		func(x, y float64) (float64, error) {
			return 0, fmt.Errorf("modulo: only integers are supported")
		})
}

// minimum returns the smaller of a and b.
func minimum(b, a interface{}) (interface{}, error) {
	return arith("minimum", b, a,
		func(x, y int64) (int64, error) {
			if x < y {
				return x, nil
			}
			return y, nil
		},
		func(x, y float64) (float64, error) {
			if x < y {
				return x, nil
			}
			return y, nil
		})
}

// maximum returns the larger of a and b.
func maximum(b, a interface{}) (interface{}, error) {
	return arith("maximum", b, a,
		func(x, y int64) (int64, error) {
			if x > y {
				return x, nil
			}
			return y, nil
		},
		func(x, y float64) (float64, error) {
			if x > y {
				return x, nil
			}
			return y, nil
		})
}
