package layout_test

import (
	"testing"

	"github.com/skdltmxn/cxxlayout/layout"
)

func TestParseTargetArgs(t *testing.T) {
	tests := []struct {
		args     string
		wantOK   bool
		triple   string
		ptrSize  uint64
		longSize uint64
	}{
		{"", true, "x86_64-pc-linux-gnu", 8, 8},
		{"   ", true, "x86_64-pc-linux-gnu", 8, 8},
		{"--target=x86_64-pc-linux-gnu", true, "x86_64-pc-linux-gnu", 8, 8},
		{"--target=i686-pc-linux-gnu", true, "i686-pc-linux-gnu", 4, 4},
		{"-target aarch64-linux-gnu", true, "aarch64-linux-gnu", 8, 8},
		{"--target wasm32-unknown-emscripten", true, "wasm32-unknown-emscripten", 4, 4},
		{"-m32", true, "i386-pc-linux-gnu", 4, 4},
		{"--target=i686-pc-linux-gnu -m64", true, "x86_64-pc-linux-gnu", 8, 8},
		{"-std=c++20 -Wall --target=riscv32-unknown-elf", true, "riscv32-unknown-elf", 4, 4},
		{"armv7-linux-gnueabihf", true, "armv7-linux-gnueabihf", 4, 4},
		{"x86_64-w64-mingw32", true, "x86_64-w64-mingw32", 8, 4},
		{"x86_64-pc-linux-gnux32", true, "x86_64-pc-linux-gnux32", 4, 4},
		{"--target=x86_64-pc-windows-msvc", false, "x86_64-pc-linux-gnu", 8, 8},
		{"--target=z80-unknown-none", false, "x86_64-pc-linux-gnu", 8, 8},
		{"-target", false, "x86_64-pc-linux-gnu", 8, 8},
		{"--target=", false, "x86_64-pc-linux-gnu", 8, 8},
	}
	for _, tt := range tests {
		t.Run(tt.args, func(t *testing.T) {
			got, ok := layout.ParseTargetArgs(tt.args)
			if ok != tt.wantOK {
				t.Errorf("ok: got %v, want %v", ok, tt.wantOK)
			}
			if got.Triple != tt.triple {
				t.Errorf("triple: got %q, want %q", got.Triple, tt.triple)
			}
			if got.PointerSize != tt.ptrSize || got.PointerAlign != tt.ptrSize {
				t.Errorf("pointer: got %d/%d, want %d", got.PointerSize, got.PointerAlign, tt.ptrSize)
			}
			if got.LongSize != tt.longSize {
				t.Errorf("long: got %d, want %d", got.LongSize, tt.longSize)
			}
		})
	}
}

func TestTargetDataModel(t *testing.T) {
	tests := []struct {
		triple              string
		llAlign, dblAlign   uint64
		ldSize, ldAlign     uint64
		int128, zeroLenBits bool
	}{
		{"x86_64-pc-linux-gnu", 8, 8, 16, 16, true, false},
		{"i386-pc-linux-gnu", 4, 4, 12, 4, false, false},
		{"aarch64-apple-darwin", 8, 8, 8, 8, true, true},
		{"arm-none-eabi", 8, 8, 8, 8, false, true},
		{"s390x-ibm-linux", 8, 8, 16, 8, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.triple, func(t *testing.T) {
			tg, ok := layout.TargetFromTriple(tt.triple)
			if !ok {
				t.Fatalf("TargetFromTriple(%q) rejected", tt.triple)
			}
			if tg.LongLongAlign != tt.llAlign || tg.DoubleAlign != tt.dblAlign {
				t.Errorf("long long/double align: got %d/%d, want %d/%d", tg.LongLongAlign, tg.DoubleAlign, tt.llAlign, tt.dblAlign)
			}
			if tg.LongDoubleSize != tt.ldSize || tg.LongDoubleAlign != tt.ldAlign {
				t.Errorf("long double: got %d/%d, want %d/%d", tg.LongDoubleSize, tg.LongDoubleAlign, tt.ldSize, tt.ldAlign)
			}
			if tg.Int128 != tt.int128 || tg.ZeroLengthBitFieldAlign != tt.zeroLenBits {
				t.Errorf("int128/zero-length: got %v/%v", tg.Int128, tg.ZeroLengthBitFieldAlign)
			}
		})
	}
}
