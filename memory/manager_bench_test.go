package memory

import (
	"testing"
)

// Benchmark_Manager_InsertDelete measures a full insert/delete round trip
// including data storage.
func Benchmark_Manager_InsertDelete(b *testing.B) {
	m, err := New(&Options{ArenaSize: 1 << 20})
	if err != nil {
		b.Fatal(err)
	}
	defer m.Close()
	payload := []byte("HelloWorld")

	b.ReportAllocs()

	for b.Loop() {
		id, insErr := m.Insert(uint32(len(payload)), payload)
		if insErr != nil {
			b.Fatal(insErr)
		}
		if delErr := m.Delete(id); delErr != nil {
			b.Fatal(delErr)
		}
	}
}

// Benchmark_Manager_InsertRelocateDelete grows a small block past its size
// so every iteration pays for one relocation.
func Benchmark_Manager_InsertRelocateDelete(b *testing.B) {
	m, err := New(&Options{ArenaSize: 1 << 20})
	if err != nil {
		b.Fatal(err)
	}
	defer m.Close()

	small := []byte("tiny")
	large := make([]byte, 300)

	b.ReportAllocs()

	for b.Loop() {
		id, insErr := m.Insert(uint32(len(small)), small)
		if insErr != nil {
			b.Fatal(insErr)
		}
		if updErr := m.Update(id, large); updErr != nil {
			b.Fatal(updErr)
		}
		if delErr := m.Delete(id); delErr != nil {
			b.Fatal(delErr)
		}
	}
}
