// Copyright © 2024 The ELPS authors

package hinttest

// CommonFile is the name the common fixtures are written to.
const CommonFile = "test/test.go"

// CommonFixtures are sources no rule should report anything in, at any
// offset. They cover malformed code, calls into imported packages, init
// bodies and unknown methods.
var CommonFixtures = []string{
	"package test; class Test {  return b;}\n",
	"package test\n\nimport \"strconv\"\n\nvar ii = new(int)\nvar s = strconv.Itoa(*ii)\n",
	"package test\n\nimport \"os\"\n\nfunc init() { os.Stdout.WriteString(\"\") }\n",
	"package test\n\ntype Test struct{}\n\nfunc (t Test) test() {\n\tt.A()\n}\n",
}
