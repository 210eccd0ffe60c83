// Package benchmark provides end-to-end performance benchmarks for valtok.
//
// Run benchmarks with:
//
//	go test -bench=. -benchmem ./internal/tests/benchmark/...
//
// Compare ciphers or ring sizes:
//
//	go test -bench='Issue_Cipher|Validate_RingSize' -benchmem -count=5 ./internal/tests/benchmark/... | tee bench.txt
//	benchstat old.txt bench.txt
package benchmark
