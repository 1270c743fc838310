package layout

import "strings"

// DefaultTriple is the target used when none is configured.
const DefaultTriple = "x86_64-pc-linux-gnu"

// Target describes the data model of the architecture records are laid out
// for. The engine reads only the pointer properties; front ends use the
// rest to size fundamental types.
type Target struct {
	Triple string // e.g. "x86_64-pc-linux-gnu"
	Arch   string // Normalized architecture, e.g. "x86_64", "i386", "aarch64"
	OS     string

	PointerSize     uint64 // bytes
	PointerAlign    uint64 // bytes
	LongSize        uint64
	LongLongAlign   uint64
	DoubleAlign     uint64
	LongDoubleSize  uint64
	LongDoubleAlign uint64
	WCharSize       uint64

	Int128    bool // __int128 is available
	BigEndian bool

	// ZeroLengthBitFieldAlign is set on targets where an unnamed zero-width
	// bit-field raises the alignment of the enclosing record.
	ZeroLengthBitFieldAlign bool
}

// DefaultTarget returns the 64-bit little-endian Linux target.
func DefaultTarget() Target {
	t, _ := TargetFromTriple(DefaultTriple)
	return t
}

// Bits returns the pointer width in bits.
func (t Target) Bits() int { return int(t.PointerSize * 8) }

type archInfo struct {
	ptr       uint64
	llAlign   uint64
	dblAlign  uint64
	ldSize    uint64
	ldAlign   uint64
	int128    bool
	bigEndian bool
	zeroLenBF bool
}

var archTable = map[string]archInfo{
	"x86_64":      {ptr: 8, llAlign: 8, dblAlign: 8, ldSize: 16, ldAlign: 16, int128: true},
	"i386":        {ptr: 4, llAlign: 4, dblAlign: 4, ldSize: 12, ldAlign: 4},
	"aarch64":     {ptr: 8, llAlign: 8, dblAlign: 8, ldSize: 16, ldAlign: 16, int128: true, zeroLenBF: true},
	"aarch64_be":  {ptr: 8, llAlign: 8, dblAlign: 8, ldSize: 16, ldAlign: 16, int128: true, zeroLenBF: true, bigEndian: true},
	"arm":         {ptr: 4, llAlign: 8, dblAlign: 8, ldSize: 8, ldAlign: 8, zeroLenBF: true},
	"armeb":       {ptr: 4, llAlign: 8, dblAlign: 8, ldSize: 8, ldAlign: 8, zeroLenBF: true, bigEndian: true},
	"riscv64":     {ptr: 8, llAlign: 8, dblAlign: 8, ldSize: 16, ldAlign: 16, int128: true},
	"riscv32":     {ptr: 4, llAlign: 8, dblAlign: 8, ldSize: 16, ldAlign: 16},
	"wasm32":      {ptr: 4, llAlign: 8, dblAlign: 8, ldSize: 16, ldAlign: 16, int128: true},
	"wasm64":      {ptr: 8, llAlign: 8, dblAlign: 8, ldSize: 16, ldAlign: 16, int128: true},
	"mips":        {ptr: 4, llAlign: 8, dblAlign: 8, ldSize: 8, ldAlign: 8, bigEndian: true},
	"mipsel":      {ptr: 4, llAlign: 8, dblAlign: 8, ldSize: 8, ldAlign: 8},
	"mips64":      {ptr: 8, llAlign: 8, dblAlign: 8, ldSize: 16, ldAlign: 16, int128: true, bigEndian: true},
	"mips64el":    {ptr: 8, llAlign: 8, dblAlign: 8, ldSize: 16, ldAlign: 16, int128: true},
	"ppc":         {ptr: 4, llAlign: 8, dblAlign: 8, ldSize: 16, ldAlign: 16, bigEndian: true},
	"ppc64":       {ptr: 8, llAlign: 8, dblAlign: 8, ldSize: 16, ldAlign: 16, int128: true, bigEndian: true},
	"ppc64le":     {ptr: 8, llAlign: 8, dblAlign: 8, ldSize: 16, ldAlign: 16, int128: true},
	"s390x":       {ptr: 8, llAlign: 8, dblAlign: 8, ldSize: 16, ldAlign: 8, int128: true, bigEndian: true},
	"loongarch64": {ptr: 8, llAlign: 8, dblAlign: 8, ldSize: 16, ldAlign: 16, int128: true},
}

// bitsPeer maps an architecture to its counterpart for -m32 and -m64.
var bitsPeer = map[string][2]string{
	"x86_64":   {"i386", "x86_64"},
	"i386":     {"i386", "x86_64"},
	"riscv64":  {"riscv32", "riscv64"},
	"riscv32":  {"riscv32", "riscv64"},
	"wasm64":   {"wasm32", "wasm64"},
	"wasm32":   {"wasm32", "wasm64"},
	"mips64":   {"mips", "mips64"},
	"mips":     {"mips", "mips64"},
	"mips64el": {"mipsel", "mips64el"},
	"mipsel":   {"mipsel", "mips64el"},
	"ppc64":    {"ppc", "ppc64"},
	"ppc":      {"ppc", "ppc64"},
}

func normalizeArch(a string) string {
	switch a {
	case "x86_64", "amd64", "x86_64h":
		return "x86_64"
	case "i386", "i486", "i586", "i686", "x86":
		return "i386"
	case "aarch64", "arm64", "arm64e":
		return "aarch64"
	case "powerpc", "ppc32":
		return "ppc"
	case "powerpc64":
		return "ppc64"
	case "powerpc64le":
		return "ppc64le"
	case "systemz":
		return "s390x"
	}
	switch {
	case strings.HasPrefix(a, "armeb"), strings.HasPrefix(a, "thumbeb"):
		return "armeb"
	case strings.HasPrefix(a, "arm"), strings.HasPrefix(a, "thumb"):
		return "arm"
	}
	return a
}

func tripleOS(parts []string) string {
	for _, p := range parts {
		switch {
		case strings.HasPrefix(p, "linux"):
			return "linux"
		case strings.HasPrefix(p, "darwin"), strings.HasPrefix(p, "macos"):
			return "darwin"
		case strings.HasPrefix(p, "ios"), strings.HasPrefix(p, "tvos"), strings.HasPrefix(p, "watchos"):
			return "darwin"
		case strings.HasPrefix(p, "windows"), strings.HasPrefix(p, "mingw"), p == "win32":
			return "windows"
		case strings.HasPrefix(p, "freebsd"), strings.HasPrefix(p, "netbsd"), strings.HasPrefix(p, "openbsd"):
			return "bsd"
		case p == "wasi", p == "emscripten":
			return p
		}
	}
	return "none"
}

// TargetFromTriple builds a target from a target triple. It reports false
// for architectures it does not know and for environments that do not use
// the Itanium C++ ABI.
func TargetFromTriple(triple string) (Target, bool) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(triple)), "-")
	if len(parts) == 0 || parts[0] == "" {
		return Target{}, false
	}
	arch := normalizeArch(parts[0])
	info, ok := archTable[arch]
	if !ok {
		return Target{}, false
	}
	env := ""
	if len(parts) > 2 {
		env = parts[len(parts)-1]
	}
	os := tripleOS(parts[1:])
	if os == "windows" && !strings.HasPrefix(env, "gnu") && !strings.HasPrefix(parts[len(parts)-1], "mingw") {
		return Target{}, false
	}

	t := Target{
		Triple:          triple,
		Arch:            arch,
		OS:              os,
		PointerSize:     info.ptr,
		PointerAlign:    info.ptr,
		LongSize:        info.ptr,
		LongLongAlign:   info.llAlign,
		DoubleAlign:     info.dblAlign,
		LongDoubleSize:  info.ldSize,
		LongDoubleAlign: info.ldAlign,
		WCharSize:       4,
		Int128:          info.int128,
		BigEndian:       info.bigEndian,

		ZeroLengthBitFieldAlign: info.zeroLenBF,
	}
	if arch == "x86_64" && env == "gnux32" {
		t.PointerSize, t.PointerAlign, t.LongSize = 4, 4, 4
	}
	switch os {
	case "windows":
		t.LongSize = 4
		t.WCharSize = 2
		if arch == "i386" {
			t.LongLongAlign, t.DoubleAlign = 8, 8
		}
	case "darwin":
		switch arch {
		case "aarch64":
			t.LongDoubleSize, t.LongDoubleAlign = 8, 8
		case "i386":
			t.LongDoubleSize, t.LongDoubleAlign = 16, 16
		}
	}
	return t, true
}

func (t Target) withBits(bits int) (Target, bool) {
	peer, ok := bitsPeer[t.Arch]
	if !ok {
		return t, t.Bits() == bits
	}
	want := peer[1]
	if bits == 32 {
		want = peer[0]
	}
	if want == t.Arch {
		return t, true
	}
	parts := strings.Split(t.Triple, "-")
	parts[0] = want
	if want == "x86_64" && len(parts) > 1 && parts[len(parts)-1] == "gnux32" {
		parts[len(parts)-1] = "gnu"
	}
	return TargetFromTriple(strings.Join(parts, "-"))
}

// ParseTargetArgs interprets a compiler-style argument string. Arguments
// are separated by spaces; --target=<triple>, -target <triple>, -m32, -m64
// and a bare triple are recognized and other flags are ignored. An empty
// string yields the default target. Malformed or unsupported input also
// yields the default target, with ok set to false.
func ParseTargetArgs(args string) (t Target, ok bool) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return DefaultTarget(), true
	}

	triple := DefaultTriple
	bits := 0
	ok = true
	for i := 0; i < len(fields); i++ {
		f := fields[i]
		switch {
		case strings.HasPrefix(f, "--target="), strings.HasPrefix(f, "-target="):
			triple = f[strings.IndexByte(f, '=')+1:]
		case f == "-target", f == "--target":
			if i+1 >= len(fields) {
				ok = false
				continue
			}
			i++
			triple = fields[i]
		case f == "-m32":
			bits = 32
		case f == "-m64":
			bits = 64
		case strings.HasPrefix(f, "-"):
		default:
			triple = f
		}
	}

	t, known := TargetFromTriple(triple)
	if !known {
		return DefaultTarget(), false
	}
	if bits != 0 {
		if t, known = t.withBits(bits); !known {
			return DefaultTarget(), false
		}
	}
	return t, ok
}
