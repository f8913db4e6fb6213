package domain

import "testing"

func strptr(s string) *string { return &s }

func TestMetadataPatchApply(t *testing.T) {
	cur := JobMetadata{
		Industry: strptr("Zahnarzt"),
		City:     strptr("Köln"),
	}

	// nil leaves fields alone, empty string clears, non-empty sets.
	out := MetadataPatch{
		City:        strptr(""),
		CompanyName: strptr("Praxis Dr. Weber"),
	}.Apply(cur)

	if out.Industry == nil || *out.Industry != "Zahnarzt" {
		t.Fatalf("industry changed: %+v", out)
	}
	if out.City != nil {
		t.Fatalf("city not cleared: %+v", out)
	}
	if out.CompanyName == nil || *out.CompanyName != "Praxis Dr. Weber" {
		t.Fatalf("company name not set: %+v", out)
	}
	if cur.City == nil {
		t.Fatal("Apply mutated its input")
	}
}

func TestBenchmarkKey(t *testing.T) {
	md := JobMetadata{Industry: strptr("Zahnarzt")}
	if _, _, ok := md.BenchmarkKey(); ok {
		t.Fatal("key should need both industry and city")
	}
	md.City = strptr("Köln")
	industry, city, ok := md.BenchmarkKey()
	if !ok || industry != "Zahnarzt" || city != "Köln" {
		t.Fatalf("unexpected key: %q %q %v", industry, city, ok)
	}
}

func TestJobStatusTerminal(t *testing.T) {
	cases := map[JobStatus]bool{
		StatusPending: false,
		StatusRunning: false,
		StatusDone:    true,
		StatusError:   true,
	}
	for status, want := range cases {
		if got := status.Terminal(); got != want {
			t.Errorf("%s: Terminal() = %v, want %v", status, got, want)
		}
	}
}
