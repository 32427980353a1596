package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Netflix.com", "NETFLIX COM"},
		{"RECIBO VODAFONE ESPAÑA", "VODAFONE ESPAÑA"},
		{"recibo: Vodafone", "VODAFONE"},
		{"OP. NET AMAZON", "AMAZON"},
		{"OP NET*AMAZON", "AMAZON"},
		{"TRANSF. A FAVOR Juan", "JUAN"},
		{"MOVIMIENTO - BIZUM", "BIZUM"},
		{"ABONO NOMINA", "NOMINA"},
		{"GYM 03/24", "GYM"},
		{"GYM 04/24", "GYM"},
		{"CUOTA PTMO 01/04/2024", "CUOTA PTMO"},
		{"compra 15-03-24 lidl", "COMPRA LIDL"},
		{"  spaced   out_label  ", "SPACED OUT LABEL"},
		{"ABONOS VARIOS", "ABONOS VARIOS"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.input), "input: %q", tt.input)
	}
}

func TestNormalizeIsProjection(t *testing.T) {
	corpus := []string{
		"Netflix.com",
		"-RECIBO RECIBO vodafone",
		"*ABONO* op net 12/12 x",
		"RECIBO",
		"1.053,21",
		"12.34.56",
		"TRANSF A FAVOR - TRANSF. A FAVOR",
		"gym 03/24",
		"__--..",
		"ÑANDÚ s.l.",
		"01/02/2024 02/03",
	}
	for _, s := range corpus {
		once := Normalize(s)
		assert.Equal(t, once, Normalize(once), "input: %q", s)
	}
}

func TestSimilar(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"VODAFONE", "VODAFONE ESPAÑA", true},
		{"Recibo Vodafone España", "vodafone", true},
		{"GYM 03/24", "GYM 04/24", true},
		{"GYM", "GYM PLUS", false},
		{"BP", "BP OIL", false},
		{"NETFLIX", "SPOTIFY", false},
		{"", "", false},
		{"RECIBO", "ABONO", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Similar(tt.a, tt.b), "%q vs %q", tt.a, tt.b)
	}
}
