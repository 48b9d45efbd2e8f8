package meta

import "testing"

func TestNormalizeSignatureExample(t *testing.T) {
	got := NormalizeSignature("foo( int , QString  const  & )")
	if got != "foo(int,QString)" {
		t.Errorf("NormalizeSignature = %q, want %q", got, "foo(int,QString)")
	}
}

func TestNormalizeSignatureRules(t *testing.T) {
	cases := []struct{ in, want string }{
		{"foo()", "foo()"},
		{"  foo ( ) ", "foo()"},
		{"foo(const QString &)", "foo(QString)"},
		{"foo(const QString)", "foo(QString)"},
		{"foo(QString const)", "foo(QString)"},
		{"foo(char const *)", "foo(const char*)"},
		{"foo(const char *)", "foo(const char*)"},
		{"foo(char * const)", "foo(char*const)"},
		{"foo(unsigned)", "foo(uint)"},
		{"foo(unsigned int)", "foo(uint)"},
		{"foo(unsigned long)", "foo(ulong)"},
		{"foo(unsigned long long)", "foo(unsigned long long)"},
		{"foo(unsigned char)", "foo(unsigned char)"},
		{"foo(struct Point)", "foo(Point)"},
		{"foo(class Widget *)", "foo(Widget*)"},
		{"foo(enum Mode)", "foo(Mode)"},
		{"foo(void)", "foo()"},
		{"foo(int, void)", "foo(int)"},
		{"foo(QMap<QString, int>, bool)", "foo(QMap<QString,int>,bool)"},
		{"foo(const QList<const Item *> &)", "foo(QList<const Item*>)"},
		{"foo(QList<QList<int> >)", "foo(QList<QList<int>>)"},
		{"foo(std::string)", "foo(std::string)"},
		{"foo(Outer::Inner const&)", "foo(Outer::Inner)"},
		{"foo(int &)", "foo(int&)"},
	}
	for _, c := range cases {
		if got := NormalizeSignature(c.in); got != c.want {
			t.Errorf("NormalizeSignature(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeSignatureIdempotent(t *testing.T) {
	inputs := []string{
		"foo( int , QString  const  & )",
		"bar(const QMap<QString, QList<int> > &, unsigned)",
		"baz(char const * const, void)",
		"qux(struct A, class B*, enum C)",
	}
	for _, in := range inputs {
		once := NormalizeSignature(in)
		twice := NormalizeSignature(once)
		if once != twice {
			t.Errorf("not idempotent: %q -> %q -> %q", in, once, twice)
		}
	}
}

func TestNormalizeType(t *testing.T) {
	cases := []struct{ in, want string }{
		{"const QString &", "QString"},
		{"unsigned", "uint"},
		{" int ", "int"},
		{"QObject *", "QObject*"},
		{"void", "void"},
		{"", ""},
	}
	for _, c := range cases {
		if got := NormalizeType(c.in); got != c.want {
			t.Errorf("NormalizeType(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeSignatureWithoutCache(t *testing.T) {
	prev := CurrentOptions()
	t.Cleanup(func() { SetOptions(prev) })

	SetOptions(Options{SignatureCacheSize: 0})
	if got := NormalizeSignature("foo( int )"); got != "foo(int)" {
		t.Errorf("uncached = %q, want foo(int)", got)
	}
	SetOptions(Options{SignatureCacheSize: 2})
	for i := 0; i < 3; i++ {
		if got := NormalizeSignature("foo( int )"); got != "foo(int)" {
			t.Errorf("cached = %q, want foo(int)", got)
		}
	}
}

func TestParameterTypes(t *testing.T) {
	params := ParameterTypes("foo(QMap<QString,int>,bool)")
	if len(params) != 2 || params[0] != "QMap<QString,int>" || params[1] != "bool" {
		t.Errorf("ParameterTypes = %v", params)
	}
	if params := ParameterTypes("foo()"); len(params) != 0 {
		t.Errorf("ParameterTypes(foo()) = %v, want none", params)
	}
	if MethodName("foo(int)") != "foo" {
		t.Error("MethodName mismatch")
	}
}

func TestCheckConnectArgs(t *testing.T) {
	if !CheckConnectArgs("changed(int,QString)", "onChanged(int)") {
		t.Error("prefix slot should be compatible")
	}
	if !CheckConnectArgs("changed(int,QString)", "onChanged()") {
		t.Error("zero-argument slot should be compatible")
	}
	if !CheckConnectArgs("changed(int,QString)", "onChanged(int, const QString &)") {
		t.Error("normalized equal slot should be compatible")
	}
	if CheckConnectArgs("changed(int)", "onChanged(QString)") {
		t.Error("mismatched types should be incompatible")
	}
	if CheckConnectArgs("changed(int)", "onChanged(int,int)") {
		t.Error("longer slot should be incompatible")
	}
}
