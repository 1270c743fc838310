// Package abi applies the Itanium C++ ABI placement rules to record
// descriptions and sizes the fundamental types of a target.
package abi

import "github.com/skdltmxn/cxxlayout/layout"

// Builtin returns the size and alignment of a fundamental type given by its
// canonical spelling, e.g. "unsigned long" or "long double".
func Builtin(name string, t layout.Target) (size, align uint64, ok bool) {
	switch name {
	case "bool", "char", "signed char", "unsigned char", "char8_t":
		return 1, 1, true
	case "short", "unsigned short", "char16_t":
		return 2, 2, true
	case "int", "unsigned int", "char32_t", "float":
		return 4, 4, true
	case "wchar_t":
		return t.WCharSize, t.WCharSize, true
	case "long", "unsigned long":
		return t.LongSize, t.LongSize, true
	case "long long", "unsigned long long":
		return 8, t.LongLongAlign, true
	case "double":
		return 8, t.DoubleAlign, true
	case "long double":
		return t.LongDoubleSize, t.LongDoubleAlign, true
	case "__int128", "unsigned __int128":
		if !t.Int128 {
			return 0, 0, false
		}
		return 16, 16, true
	case "std::nullptr_t":
		return t.PointerSize, t.PointerAlign, true
	}
	return 0, 0, false
}

// IsIntegral reports whether a canonical builtin spelling names an integer
// or character type, the types a bit-field may be declared with.
func IsIntegral(name string) bool {
	switch name {
	case "bool", "char", "signed char", "unsigned char", "char8_t",
		"short", "unsigned short", "char16_t", "char32_t", "wchar_t",
		"int", "unsigned int", "long", "unsigned long",
		"long long", "unsigned long long", "__int128", "unsigned __int128":
		return true
	}
	return false
}

// Pointer returns the size and alignment of object, function and reference
// pointers, and of pointers to data members.
func Pointer(t layout.Target) (size, align uint64) {
	return t.PointerSize, t.PointerAlign
}

// MemberFunctionPointer returns the size and alignment of a pointer to
// member function, a {ptr, adj} pair in the Itanium ABI.
func MemberFunctionPointer(t layout.Target) (size, align uint64) {
	return 2 * t.PointerSize, t.PointerAlign
}

// MaxObjectSize is the largest size in bytes of an object on t. Offsets
// are also kept in bits, so the limit never exceeds 2^61-1 bytes.
func MaxObjectSize(t layout.Target) uint64 {
	n := t.PointerSize * 8
	if n == 0 || n > 61 {
		n = 61
	}
	return 1<<n - 1
}
