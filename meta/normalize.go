package meta

import (
	"strings"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru"
)

// ---------------------------------------------------------------------------
// Signature normalization
//
// Two spellings of the same signature normalize to the same text:
//
//   foo( int , QString  const  & )  ->  foo(int,QString)
//   bar(const QList<const Item *> &)  ->  bar(QList<const Item*>)
//   baz(unsigned, void)  ->  baz(uint)
// ---------------------------------------------------------------------------

var sigCache atomic.Pointer[lru.Cache]

func init() {
	resetSignatureCache(DefaultOptions().SignatureCacheSize)
}

// resetSignatureCache replaces the normalized-signature cache. A size of
// zero or less disables caching.
func resetSignatureCache(size int) {
	if size <= 0 {
		sigCache.Store(nil)
		return
	}
	c, err := lru.New(size)
	if err != nil {
		sigCache.Store(nil)
		return
	}
	sigCache.Store(c)
}

// NormalizeSignature returns the canonical text of a method signature.
// The result is idempotent: normalizing it again yields the same text.
func NormalizeSignature(method string) string {
	if method == "" {
		return ""
	}
	c := sigCache.Load()
	if c != nil {
		if v, ok := c.Get(method); ok {
			return v.(string)
		}
	}

	result := normalizeSignature(method)
	if c != nil {
		c.Add(method, result)
	}
	return result
}

func normalizeSignature(method string) string {
	d := removeWhitespace(method)
	res := make([]byte, 0, len(d))

	argDepth, templDepth := 0, 0
	for i := 0; i < len(d); {
		if argDepth == 1 {
			start := i
			for i < len(d) && (templDepth > 0 || (d[i] != ',' && d[i] != ')')) {
				switch d[i] {
				case '<':
					templDepth++
				case '>':
					templDepth--
				}
				i++
			}
			if arg := normalizeTypeInternal(d[start:i], true); arg == "void" {
				// Drop the argument together with its separator.
				if i < len(d) && d[i] == ',' {
					i++
					continue
				}
				if n := len(res); n > 0 && res[n-1] == ',' {
					res = res[:n-1]
				}
			} else {
				res = append(res, arg...)
			}
			if i >= len(d) {
				break
			}
		}
		switch d[i] {
		case '(':
			argDepth++
		case ')':
			argDepth--
		}
		res = append(res, d[i])
		i++
	}
	return string(res)
}

// NormalizeType returns the canonical spelling of a single type name.
func NormalizeType(typ string) string {
	if typ == "" {
		return ""
	}
	return normalizeTypeInternal(removeWhitespace(typ), true)
}

// removeWhitespace drops all whitespace except a single space between two
// identifier characters, or between '<' and ':'.
func removeWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	var last byte
	i := 0
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	for i < len(s) {
		for i < len(s) && !isSpace(s[i]) {
			last = s[i]
			b.WriteByte(last)
			i++
		}
		for i < len(s) && isSpace(s[i]) {
			i++
		}
		if i < len(s) && ((isIdentChar(s[i]) && isIdentChar(last)) || (s[i] == ':' && last == '<')) {
			last = ' '
			b.WriteByte(' ')
		}
	}
	return b.String()
}

// normalizeTypeInternal canonicalizes one whitespace-stripped type. With
// adjustConst, top-level const values and const references become plain
// values; template arguments keep their const.
func normalizeTypeInternal(t string, adjustConst bool) string {
	// "char const *" -> "const char *". Stop at the first indirection or
	// template so "char * const *" and "Bar<const Bla>" are left alone.
	for i := 1; i < len(t); i++ {
		if t[i] == 'c' && strings.HasPrefix(t[i+1:], "onst") &&
			(i+5 >= len(t) || !isIdentChar(t[i+5])) && !isIdentChar(t[i-1]) {
			if isSpace(t[i-1]) {
				t = "const " + t[:i-1] + t[i+5:]
			} else {
				t = "const " + t[:i] + t[i+5:]
			}
			break
		}
		if t[i] == '&' || t[i] == '*' || t[i] == '<' {
			break
		}
	}

	if adjustConst && len(t) > 6 && strings.HasPrefix(t, "const ") {
		switch last := t[len(t)-1]; {
		case last == '&':
			t = t[6 : len(t)-1]
		case isIdentChar(last) || last == '>':
			t = t[6:]
		}
	}

	res := make([]byte, 0, len(t))
	if strings.HasPrefix(t, "const ") {
		t = t[6:]
		res = append(res, "const "...)
	}

	if strings.HasPrefix(t, "unsigned") && (len(t) == 8 || !isIdentChar(t[8])) {
		rest := t[8:]
		switch {
		case strings.HasPrefix(rest, " int"):
			t = rest[4:]
			res = append(res, "uint"...)
		case strings.HasPrefix(rest, " long"):
			after := rest[5:]
			if !strings.HasPrefix(after, " int") && !strings.HasPrefix(after, " long") {
				t = after
				res = append(res, "ulong"...)
			}
		case !strings.HasPrefix(rest, " short") && !strings.HasPrefix(rest, " char"):
			t = rest
			res = append(res, "uint"...)
		}
	} else {
		for _, kw := range []string{"struct ", "class ", "enum "} {
			if strings.HasPrefix(t, kw) {
				t = t[len(kw):]
				break
			}
		}
	}

	star := false
	for i := 0; i < len(t); {
		c := t[i]
		i++
		star = star || c == '*'
		res = append(res, c)

		if c == '<' {
			start, depth, scope := i, 1, 0
			for i < len(t) {
				c = t[i]
				i++
				switch c {
				case '{', '(', '[':
					scope++
				case '}', ')', ']':
					scope--
				}
				if scope != 0 {
					continue
				}
				if c == '<' {
					depth++
				} else if c == '>' {
					depth--
				}
				if depth == 0 || (depth == 1 && c == ',') {
					res = append(res, normalizeTypeInternal(t[start:i-1], false)...)
					res = append(res, c)
					if depth == 0 {
						break
					}
					start = i
				}
			}
		}

		// cv-qualifiers may also follow the type
		if !isIdentChar(c) && len(t)-i >= 5 && strings.HasPrefix(t[i:], "const") &&
			(len(t)-i == 5 || !isIdentChar(t[i+5])) {
			i += 5
			for i < len(t) && isSpace(t[i]) {
				i++
			}
			switch {
			case adjustConst && i < len(t) && t[i] == '&':
				i++
			case adjustConst && !star:
			case !star:
				res = append([]byte("const "), res...)
			default:
				res = append(res, "const"...)
			}
		}
	}
	return string(res)
}

// ---------------------------------------------------------------------------
// Signature parts
// ---------------------------------------------------------------------------

// MethodName returns the part of a signature before '('.
func MethodName(sig string) string {
	if i := strings.IndexByte(sig, '('); i >= 0 {
		return sig[:i]
	}
	return sig
}

// ParameterTypes splits the argument list of a signature at top-level
// commas. Commas inside template arguments do not split.
func ParameterTypes(sig string) []string {
	open := strings.IndexByte(sig, '(')
	if open < 0 {
		return nil
	}
	var params []string
	depth, start := 0, open+1
	for i := open + 1; i < len(sig); i++ {
		switch sig[i] {
		case '<', '(':
			depth++
		case '>':
			depth--
		case ')':
			if depth == 0 {
				if last := strings.TrimSpace(sig[start:i]); last != "" || len(params) > 0 {
					params = append(params, last)
				}
				return params
			}
			depth--
		case ',':
			if depth == 0 {
				params = append(params, strings.TrimSpace(sig[start:i]))
				start = i + 1
			}
		}
	}
	return params
}

// CheckConnectArgs reports whether a slot can receive a signal: the slot's
// parameter types must be a prefix of the signal's, or the slot takes no
// parameters.
func CheckConnectArgs(signal, slot string) bool {
	sigParams := ParameterTypes(NormalizeSignature(signal))
	slotParams := ParameterTypes(NormalizeSignature(slot))
	if len(slotParams) > len(sigParams) {
		return false
	}
	for i, p := range slotParams {
		if p != sigParams[i] {
			return false
		}
	}
	return true
}

func isIdentChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_'
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}
