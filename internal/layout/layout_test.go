package layout

import "testing"

func TestFingerprintStableUnderPropertyReordering(t *testing.T) {
	a := []Property{
		{Name: "age", Type: TagI32},
		{Name: "name", Type: TagStr},
	}
	b := []Property{
		{Name: "name", Type: TagStr},
		{Name: "age", Type: TagI32},
	}
	if computeFingerprint(a) != computeFingerprint(b) {
		t.Fatal("fingerprint must not depend on property declaration order")
	}
}

func TestFingerprintChangesWithShape(t *testing.T) {
	a := []Property{{Name: "age", Type: TagI32}}
	b := []Property{{Name: "age", Type: TagI64}}
	if computeFingerprint(a) == computeFingerprint(b) {
		t.Fatal("fingerprint must depend on property type")
	}
}

func TestFingerprintChangesWithNestedRef(t *testing.T) {
	var fp1, fp2 Fingerprint
	fp2[0] = 1
	a := []Property{{Name: "home", Type: TagLayoutRef, Ref: fp1}}
	b := []Property{{Name: "home", Type: TagLayoutRef, Ref: fp2}}
	if computeFingerprint(a) == computeFingerprint(b) {
		t.Fatal("fingerprint must depend on referenced layout fingerprint")
	}
}

func TestTypeTagString(t *testing.T) {
	if TagUUID.String() != "uuid" || TagLayoutRef.String() != "layout" {
		t.Fatalf("unexpected String() results: %s %s", TagUUID, TagLayoutRef)
	}
}

func TestFingerprintZeroValue(t *testing.T) {
	var fp Fingerprint
	if !fp.IsZero() {
		t.Fatal("zero Fingerprint should report IsZero")
	}
	fp[0] = 1
	if fp.IsZero() {
		t.Fatal("non-zero Fingerprint should not report IsZero")
	}
}
