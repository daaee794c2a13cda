package ruby_test

import (
	"context"
	"math/rand"
	"testing"

	"github.com/dhamidi/sitter/parser"
	"github.com/dhamidi/sitter/ruby"
	"github.com/dhamidi/sitter/source"
	"github.com/dhamidi/sitter/syntax"
	"github.com/google/go-cmp/cmp"
)

func newParser(t *testing.T) *parser.Parser {
	t.Helper()
	lang, err := ruby.Language()
	if err != nil {
		t.Fatalf("Language() error = %v", err)
	}
	return parser.New(lang)
}

func parse(t *testing.T, p *parser.Parser, text string) *syntax.Tree {
	t.Helper()
	tree, err := p.Parse(context.Background(), source.String(text), nil)
	if err != nil {
		t.Fatalf("Parse(%q) error = %v", text, err)
	}
	return tree
}

func TestLanguage(t *testing.T) {
	lang, err := ruby.Language()
	if err != nil {
		t.Fatalf("Language() error = %v", err)
	}
	again, _ := ruby.Language()
	if again != lang {
		t.Error("Language() compiled the grammar twice")
	}
	for _, name := range []string{
		"program", "method_declaration", "heredoc_body", "string_content", "interpolation",
		"hash", "pair", "block", "do_block", "case_statement", "command_call", "lambda",
	} {
		if _, ok := lang.SymbolByName(name); !ok {
			t.Errorf("no symbol %s", name)
		}
	}
	start, _ := lang.SymbolByName("_string_start")
	if info := lang.Symbol(start); !info.Hidden {
		t.Errorf("_string_start = %+v, want hidden", info)
	}
	for _, c := range lang.Conflicts() {
		t.Logf("conflict on %s in state %d", lang.SymbolName(c.Symbol), c.State)
	}
}

func TestParseShapes(t *testing.T) {
	p := newParser(t)
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"precedence", "x = 1 + 2 * 3\n",
			`(program (assignment (identifier) "=" (additive (integer) "+" (multiplicative (integer) "*" (integer)))))`},
		{"unary minus below power", "-a ** 2",
			`(program (unary_minus "-" (exponential (identifier) "**" (integer))))`},
		{"keyword operators", "a and not b",
			`(program (and (identifier) "and" (not "not" (identifier))))`},
		{"modifier", "return x if y",
			`(program (if_modifier (return_statement "return" (identifier)) "if" (identifier)))`},
		{"comments", "# hi\nx # c\n",
			`(program (comment) (identifier) (comment))`},
		{"method call", "a.b(c)",
			`(program (method_call (member_access (identifier) "." (identifier)) "(" (argument_list (identifier)) ")"))`},
		{"scope and subscript", "Foo::Bar[1]",
			`(program (subscript_expression (scope_resolution (constant) "::" (constant)) "[" (argument_list (integer)) "]"))`},
		{"literals", "[1, 2.5, :sym, nil, true]",
			`(program (array "[" (integer) "," (float) "," (symbol) "," (nil) "," (true) "]"))`},
		{"interpolation", `puts("hi #{name}!")`,
			`(program (method_call (identifier) "(" (argument_list (string (string_content) (interpolation (identifier)) (string_content))) ")"))`},
		{"percent literal", "%w(a (b) c)",
			`(program (string (string_content)))`},
		{"heredoc", "x = <<~EOS\n  hi\nEOS\n",
			`(program (assignment (identifier) "=" (heredoc_beginning)) (heredoc_body))`},
		{"if", "if a\n  b\nelsif c\n  d\nelse\n  e\nend\n",
			`(program (if_statement "if" (identifier) (then_block (identifier)) (elsif "elsif" (identifier) (then_block (identifier))) (else_block "else" (identifier)) "end"))`},
		{"class", "class Foo < Bar\n  def initialize(a, b = 1)\n    @a = a\n  end\nend\n",
			`(program (class_declaration "class" (constant) (superclass "<" (constant)) (method_declaration "def" (identifier) "(" (parameters (identifier) "," (optional_parameter (identifier) "=" (integer))) ")" (assignment (instance_variable) "=" (identifier)) "end") "end"))`},
		{"command call", "puts x",
			`(program (command_call (identifier) (command_argument_list (identifier))))`},
		{"command call arguments", "puts \"a\", 1",
			`(program (command_call (identifier) (command_argument_list (string (string_content)) "," (integer))))`},
		{"operator after a name", "a - b",
			`(program (additive (identifier) "-" (identifier)))`},
		{"hash", "h = {a: 1, \"b\" => 2}",
			`(program (assignment (identifier) "=" (hash "{" (pair (hash_key_symbol) (integer)) "," (pair (string (string_content)) "=>" (integer)) "}")))`},
		{"keyword arguments", "foo(a: 1)",
			`(program (method_call (identifier) "(" (argument_list (pair (hash_key_symbol) (integer))) ")"))`},
		{"case", "case x\nwhen 1, 2 then y\nelse z\nend\n",
			`(program (case_statement "case" (identifier) (when "when" (integer) "," (integer) (then_block "then" (identifier))) (else_block "else" (identifier)) "end"))`},
		{"do block", "items.each do |x|\n  puts x\nend\n",
			`(program (command_call (member_access (identifier) "." (identifier)) (do_block "do" (block_parameters "|" (parameters (identifier)) "|") (command_call (identifier) (command_argument_list (identifier))) "end")))`},
		{"brace block", "[1, 2].map { |n| n * 2 }",
			`(program (method_call (member_access (array "[" (integer) "," (integer) "]") "." (identifier)) (block "{" (block_parameters "|" (parameters (identifier)) "|") (multiplicative (identifier) "*" (integer)) "}")))`},
		{"loop with break", "loop do\n  break if done\nend\n",
			`(program (command_call (identifier) (do_block "do" (if_modifier (break_statement "break") "if" (identifier)) "end")))`},
		{"lambda", "f = ->(x) { x + 1 }",
			`(program (assignment (identifier) "=" (lambda "->" "(" (parameters (identifier)) ")" (block "{" (additive (identifier) "+" (integer)) "}"))))`},
		{"retry", "begin\n  x\nrescue\n  retry\nend\n",
			`(program (begin_statement "begin" (identifier) (rescue_block "rescue" (retry_statement "retry")) "end"))`},
		{"next and redo", "each { |v| next v }\nredo\n",
			`(program (method_call (identifier) (block "{" (block_parameters "|" (parameters (identifier)) "|") (next_statement "next" (identifier)) "}")) (redo_statement "redo"))`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := parse(t, p, tt.input)
			if diff := cmp.Diff(tt.want, tree.String()); diff != "" {
				t.Errorf("tree mismatch (-want +got):\n%s", diff)
			}
			root := tree.Root()
			if root.HasError() {
				t.Errorf("unexpected error in %s", tree)
			}
			if root.StartByte() != 0 || root.EndByte() != len(tt.input) {
				t.Errorf("root = [%d,%d), want [0,%d)", root.StartByte(), root.EndByte(), len(tt.input))
			}
		})
	}
}

const sample = `# A small program.
module Shapes
  class Circle < Base
    PI = 3.14159

    def initialize(radius, *rest, &block)
      @radius = radius
      @@count ||= 0
      @@count += 1
    end

    def area
      PI * @radius ** 2
    end

    def describe
      label = 'circle'
      unless @radius > 0
        return nil
      end
      "#{label} of radius #{@radius}"
    end

    def ==(other)
      other.radius == @radius && !other.nil?
    end
  end
end

begin
  sizes = [1, 2, 3]
  for s in 0..2 do
    puts(Shapes::Circle.new(sizes[s]).area)
  end
  while $running
    $running = false
  end
  x = defined? y ? 1 : 2
rescue ArgumentError, TypeError => e
  warn(e.message)
else
  query = <<-SQL
    SELECT * FROM shapes
    SQL
ensure
  done = true
end
`

func TestParseSample(t *testing.T) {
	p := newParser(t)
	tree := parse(t, p, sample)
	root := tree.Root()
	if root.HasError() {
		t.Fatalf("unexpected error in %s", tree)
	}
	if root.EndByte() != len(sample) {
		t.Errorf("root ends at %d, want %d", root.EndByte(), len(sample))
	}

	seen := make(map[string]bool)
	root.Walk(func(n syntax.Node) bool {
		seen[n.Type()] = true
		return true
	})
	for _, typ := range []string{
		"module_declaration", "class_declaration", "superclass", "method_declaration",
		"splat_parameter", "block_parameter", "operator_assignment", "exponential",
		"unless_statement", "return_statement", "interpolation", "relational",
		"boolean_and", "complement", "for_statement", "range", "while_statement",
		"global_variable", "class_variable", "conditional", "defined",
		"begin_statement", "rescue_block", "exceptions", "exception_variable",
		"else_block", "ensure_block", "heredoc_body", "comment",
	} {
		if !seen[typ] {
			t.Errorf("no %s node in the tree", typ)
		}
	}
}

func TestParseMalformed(t *testing.T) {
	p := newParser(t)
	for _, input := range []string{
		"def foo(\n",
		"x = \"unterminated",
		"class\nend\n",
		"a = (1 + \n",
		"if x then y",
		"puts(\"#{a\")",
	} {
		t.Run(input, func(t *testing.T) {
			tree := parse(t, p, input)
			root := tree.Root()
			if !root.HasError() {
				t.Errorf("no error in %s", tree)
			}
			if root.StartByte() != 0 || root.EndByte() != len(input) {
				t.Errorf("root = [%d,%d), want [0,%d)", root.StartByte(), root.EndByte(), len(input))
			}
		})
	}
}

func TestIncrementalEquivalence(t *testing.T) {
	p := newParser(t)
	steps := []struct {
		name   string
		find   string
		insert string
	}{
		{"rename", "radius, *rest", "size, *rest"},
		{"string content", "'circle'", "'round circle'"},
		{"heredoc body", "SELECT *", "SELECT id"},
		{"new statement", "      @@count += 1\n", "      @@count += 1\n      log(:created)\n"},
		{"break a string", "\"#{label}", "\"#{label"},
		{"mend it", "\"#{label", "\"#{label}"},
		{"drop a method", "    def area\n      PI * @radius ** 2\n    end\n", ""},
	}
	text := []byte(sample)
	tree := parse(t, p, sample)
	for _, s := range steps {
		i := indexOf(text, s.find)
		if i < 0 {
			t.Fatalf("%s: %q not found", s.name, s.find)
		}
		var edit source.Edit
		text, edit = source.Replace(text, i, i+len(s.find), []byte(s.insert))
		next, err := p.Parse(context.Background(), source.Bytes(text), tree, edit)
		if err != nil {
			t.Fatalf("%s: Parse() error = %v", s.name, err)
		}
		fresh := parse(t, p, string(text))
		if diff := cmp.Diff(fresh.String(), next.String()); diff != "" || !next.Equal(fresh) {
			t.Fatalf("%s: incremental parse differs (-fresh +incremental):\n%s", s.name, diff)
		}
		tree = next
	}
}

func TestIncrementalAfterRecovery(t *testing.T) {
	p := newParser(t)
	tests := []struct {
		name       string
		text       string
		start, end int
		insert     string
	}{
		{"drop a leading newline", "\n1\",", 0, 1, ""},
		{"add a leading newline", "1\",", 0, 0, "\n"},
		{"close the string", "x = 1\ny = \"a\nz = 2\n", 12, 12, "\""},
		{"open a string", "x = 1\ny = a\nz = 2\n", 10, 10, "\""},
		{"stray comma", "foo(1)\nbar\n", 6, 6, ","},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			old := parse(t, p, tt.text)
			text, edit := source.Replace([]byte(tt.text), tt.start, tt.end, []byte(tt.insert))
			tree, err := p.Parse(context.Background(), source.Bytes(text), old, edit)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			fresh := parse(t, p, string(text))
			if diff := cmp.Diff(fresh.String(), tree.String()); diff != "" || !tree.Equal(fresh) {
				t.Errorf("incremental parse of %q differs (-fresh +incremental):\n%s", text, diff)
			}
		})
	}
}

func TestIncrementalRandomEdits(t *testing.T) {
	p := newParser(t)
	pieces := []string{
		"x", "foo", "1", " ", "\n", "=", "+", "*", ",", "(", ")", "[", "]", "{", "}",
		"\"", "'", "#{", ":", "|", ".", "def ", "end", "if ", "do", "class ",
		"then", "return ", "@a", "nil", "<<~E\nq\nE\n",
	}
	rng := rand.New(rand.NewSource(11))
	text := []byte("class A\n  def foo(x)\n    x + 1\n  end\nend\nputs(\"#{a}\")\n")
	tree := parse(t, p, string(text))
	malformed := 0
	for i := 0; i < 300; i++ {
		start := rng.Intn(len(text) + 1)
		end := start + rng.Intn(min(len(text)-start, 6)+1)
		if len(text) > 120 {
			end = min(len(text), start+16)
		}
		var insert []byte
		for n := rng.Intn(3); n > 0; n-- {
			insert = append(insert, pieces[rng.Intn(len(pieces))]...)
		}
		var edit source.Edit
		text, edit = source.Replace(text, start, end, insert)
		next, err := p.Parse(context.Background(), source.Bytes(text), tree, edit)
		if err != nil {
			t.Fatalf("step %d: Parse(%q) error = %v", i, text, err)
		}
		fresh := parse(t, p, string(text))
		if diff := cmp.Diff(fresh.String(), next.String()); diff != "" || !next.Equal(fresh) {
			t.Fatalf("step %d (%q): incremental parse differs (-fresh +incremental):\n%s", i, text, diff)
		}
		if fresh.Root().HasError() {
			malformed++
		}
		tree = next
	}
	if malformed == 0 {
		t.Error("no edit produced a malformed document")
	}
}

func indexOf(text []byte, s string) int {
	for i := 0; i+len(s) <= len(text); i++ {
		if string(text[i:i+len(s)]) == s {
			return i
		}
	}
	return -1
}
