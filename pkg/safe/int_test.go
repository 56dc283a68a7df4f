package safe

import (
	"math"
	"testing"
)

type int32Args[T interface {
	~int | ~int32 | ~int64 | ~uint | ~uint32 | ~uint64
}] struct {
	v T
}

type int32TestCase[T interface {
	~int | ~int32 | ~int64 | ~uint | ~uint32 | ~uint64
}] struct {
	name    string
	args    int32Args[T]
	want    int32
	wantErr bool
}

func runInt32Case[T interface {
	~int | ~int32 | ~int64 | ~uint | ~uint32 | ~uint64
}](t *testing.T, tc int32TestCase[T]) {
	t.Helper()

	t.Run(tc.name, func(t *testing.T) {
		got, err := Int32(tc.args.v)
		if (err != nil) != tc.wantErr {
			t.Errorf("Int32() error = %v, wantErr %v", err, tc.wantErr)
			return
		}
		if got != tc.want {
			t.Errorf("Int32() got = %v, want %v", got, tc.want)
		}
	})
}

func TestInt32(t *testing.T) {
	runInt32Case(t, int32TestCase[int64]{name: "int64 within range", args: int32Args[int64]{v: 42}, want: 42})
	runInt32Case(t, int32TestCase[int64]{name: "int64 overflow", args: int32Args[int64]{v: int64(math.MaxInt32) + 1}, wantErr: true})
	runInt32Case(t, int32TestCase[int64]{name: "int64 underflow", args: int32Args[int64]{v: int64(math.MinInt32) - 1}, wantErr: true})
	runInt32Case(t, int32TestCase[int64]{name: "int64 boundary max", args: int32Args[int64]{v: math.MaxInt32}, want: math.MaxInt32})
	runInt32Case(t, int32TestCase[int64]{name: "int64 boundary min", args: int32Args[int64]{v: math.MinInt32}, want: math.MinInt32})
	runInt32Case(t, int32TestCase[uint64]{name: "uint64 overflow", args: int32Args[uint64]{v: math.MaxInt32 + 1}, wantErr: true})
	runInt32Case(t, int32TestCase[uint64]{name: "uint64 boundary ok", args: int32Args[uint64]{v: math.MaxInt32}, want: math.MaxInt32})
	runInt32Case(t, int32TestCase[int32]{name: "int32 passthrough", args: int32Args[int32]{v: -5}, want: -5})
	runInt32Case(t, int32TestCase[int]{name: "int zero", args: int32Args[int]{v: 0}, want: 0})
}
