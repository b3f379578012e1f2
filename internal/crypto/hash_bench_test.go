package crypto

import (
	"strconv"
	"strings"
	"testing"
)

// sweepBody approximates a CSV sweep response of n rows.
func sweepBody(n int) []byte {
	var sb strings.Builder
	sb.WriteString("lambda,Wq\n")
	for i := 0; i < n; i++ {
		sb.WriteString(strconv.FormatFloat(float64(i)*0.01, 'g', -1, 64))
		sb.WriteString(",0.123456789\n")
	}
	return []byte(sb.String())
}

func BenchmarkSign_Sweep100(b *testing.B)    { benchSign(b, 100) }
func BenchmarkSign_Sweep10000(b *testing.B)  { benchSign(b, 10000) }
func BenchmarkVerify_Sweep1000(b *testing.B) { benchVerify(b, 1000) }

func benchSign(b *testing.B, rows int) {
	data := sweepBody(rows)
	b.ReportAllocs()
	b.SetBytes(int64(len(data)))
	for i := 0; i < b.N; i++ {
		_ = HashSHA256(data, "bench-key")
	}
}

func benchVerify(b *testing.B, rows int) {
	data := sweepBody(rows)
	sig := HashSHA256(data, "bench-key")
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if !Verify(data, "bench-key", sig) {
			b.Fatal("verify failed")
		}
	}
}
