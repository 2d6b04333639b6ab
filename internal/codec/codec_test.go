package codec

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/flowcore/flowcore/internal/layout"
	"github.com/google/uuid"
)

type profile struct {
	City string `chronicle:"city"`
}

type person struct {
	Name    string            `chronicle:"name"`
	Age     int32             `chronicle:"age"`
	Height  float64           `chronicle:"height"`
	ID      uuid.UUID         `chronicle:"id"`
	Tags    []string          `chronicle:"tags"`
	Scores  map[string]int32  `chronicle:"scores"`
	Nick    *string           `chronicle:"nick"`
	Home    profile           `chronicle:"home"`
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cache := layout.NewCache()
	lay, err := cache.Describe(reflect.TypeOf(person{}))
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}

	nick := "scout"
	want := person{
		Name:   "Ada",
		Age:    37,
		Height: 1.68,
		ID:     uuid.New(),
		Tags:   []string{"b", "a", "c"},
		Scores: map[string]int32{"z": 1, "a": 2, "m": 3},
		Nick:   &nick,
		Home:   profile{City: "London"},
	}

	var buf bytes.Buffer
	if err := Encode(&buf, cache, lay, &want); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var got person
	if err := Decode(bytes.NewReader(buf.Bytes()), cache, lay, &got); err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if got.Name != want.Name || got.Age != want.Age || got.Height != want.Height || got.ID != want.ID {
		t.Fatalf("scalar mismatch: got %+v, want %+v", got, want)
	}
	if !reflect.DeepEqual(got.Tags, want.Tags) {
		t.Fatalf("Tags mismatch: got %v, want %v", got.Tags, want.Tags)
	}
	if !reflect.DeepEqual(got.Scores, want.Scores) {
		t.Fatalf("Scores mismatch: got %v, want %v", got.Scores, want.Scores)
	}
	if got.Nick == nil || *got.Nick != *want.Nick {
		t.Fatalf("Nick mismatch: got %v, want %v", got.Nick, want.Nick)
	}
	if got.Home != want.Home {
		t.Fatalf("Home mismatch: got %+v, want %+v", got.Home, want.Home)
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	cache := layout.NewCache()
	lay, err := cache.Describe(reflect.TypeOf(person{}))
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	v := person{Name: "Grace", Age: 40, Scores: map[string]int32{"x": 1, "y": 2}}

	var a, b bytes.Buffer
	if err := Encode(&a, cache, lay, &v); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if err := Encode(&b, cache, lay, &v); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Fatal("two encodings of the same value differ")
	}
}

func TestDecodeEncodeIsIdentity(t *testing.T) {
	cache := layout.NewCache()
	lay, err := cache.Describe(reflect.TypeOf(person{}))
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	v := person{Name: "Edsger", Age: 55, ID: uuid.New(), Scores: map[string]int32{"a": 1}}

	var original bytes.Buffer
	if err := Encode(&original, cache, lay, &v); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var decoded person
	if err := Decode(bytes.NewReader(original.Bytes()), cache, lay, &decoded); err != nil {
		t.Fatalf("Decode: %v", err)
	}

	var reencoded bytes.Buffer
	if err := Encode(&reencoded, cache, lay, &decoded); err != nil {
		t.Fatalf("re-Encode: %v", err)
	}

	if !bytes.Equal(original.Bytes(), reencoded.Bytes()) {
		t.Fatal("decode-then-encode did not reproduce the original bytes")
	}
}

func TestDecodeTruncatedInputFails(t *testing.T) {
	cache := layout.NewCache()
	lay, err := cache.Describe(reflect.TypeOf(person{}))
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	v := person{Name: "Barbara", Age: 50}
	var buf bytes.Buffer
	if err := Encode(&buf, cache, lay, &v); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	truncated := buf.Bytes()[:len(buf.Bytes())-3]
	var got person
	err = Decode(bytes.NewReader(truncated), cache, lay, &got)
	if err == nil {
		t.Fatal("expected a truncation error, got nil")
	}
}

func TestOptionalNilFieldRoundTrips(t *testing.T) {
	cache := layout.NewCache()
	lay, err := cache.Describe(reflect.TypeOf(person{}))
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	v := person{Name: "Linus", Age: 30}

	var buf bytes.Buffer
	if err := Encode(&buf, cache, lay, &v); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var got person
	if err := Decode(bytes.NewReader(buf.Bytes()), cache, lay, &got); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Nick != nil {
		t.Fatalf("expected nil Nick, got %v", *got.Nick)
	}
}
