package render

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/taigrr/cubic/pkg/gpu"
)

// storage is the role of a declaration at global scope.
type storage int

const (
	storageInput storage = iota
	storageOutput
	storageUniform
)

// declaration is one global variable of a shader stage.
type declaration struct {
	storage storage
	typ     string
	name    string
	array   int // 0 for non-arrays
	line    int
}

// components returns the scalar count of one element of the declaration.
func (d declaration) components() int {
	return typeComponents[d.typ]
}

// shaderInfo is what the compiler extracts from one stage.
type shaderInfo struct {
	stage    gpu.ShaderStage
	version  int
	inputs   []declaration
	outputs  []declaration
	uniforms []declaration
}

var typeComponents = map[string]int{
	"float": 1, "int": 1, "bool": 1, "uint": 1,
	"vec2": 2, "vec3": 3, "vec4": 4,
	"ivec2": 2, "ivec3": 3, "ivec4": 4,
	"uvec2": 2, "uvec3": 3, "uvec4": 4,
	"bvec2": 2, "bvec3": 3, "bvec4": 4,
	"mat2": 4, "mat3": 9, "mat4": 16,
	"sampler2D": 1, "samplerCube": 1,
}

func isSampler(typ string) bool {
	return strings.HasPrefix(typ, "sampler")
}

func isIntegerType(typ string) bool {
	switch typ {
	case "int", "bool", "uint", "ivec2", "ivec3", "ivec4", "uvec2", "uvec3", "uvec4", "bvec2", "bvec3", "bvec4":
		return true
	}
	return isSampler(typ)
}

var (
	versionRe = regexp.MustCompile(`^\s*#\s*version\s+(\d+)(\s+es)?\s*$`)
	mainRe    = regexp.MustCompile(`^void\s+main\s*\(\s*(void)?\s*\)\s*\{`)
	arrayRe   = regexp.MustCompile(`^([A-Za-z_]\w*)\s*\[\s*(\d+)\s*\]$`)
	identRe   = regexp.MustCompile(`^[A-Za-z_]\w*$`)
)

var qualifiers = map[string]bool{
	"highp": true, "mediump": true, "lowp": true,
	"flat": true, "smooth": true, "centroid": true, "invariant": true,
}

// compileLog collects diagnostics in the ES compiler log format.
type compileLog struct {
	lines []string
}

func (l *compileLog) errorf(line int, token, format string, args ...any) {
	l.lines = append(l.lines, fmt.Sprintf("ERROR: 0:%d: '%s' : %s", line, token, fmt.Sprintf(format, args...)))
}

func (l *compileLog) String() string {
	if len(l.lines) == 0 {
		return ""
	}
	return strings.Join(l.lines, "\n") + fmt.Sprintf("\nERROR: %d compilation errors.  No code generated.\n", len(l.lines))
}

// compileShader scans source for its global declarations and entry point.
// It validates structure (balanced delimiters, terminated statements, a
// main function, known types, stage-appropriate qualifiers) but not
// expressions.
func compileShader(stage gpu.ShaderStage, source string, modern bool) (*shaderInfo, string) {
	var log compileLog
	info := &shaderInfo{stage: stage, version: 100}
	src := stripComments(source)

	lines := strings.Split(src, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "#") {
			continue
		}
		if m := versionRe.FindStringSubmatch(trimmed); m != nil {
			v, _ := strconv.Atoi(m[1])
			switch {
			case v != 100 && v != 300:
				log.errorf(i+1, m[1], "version number not supported")
			case v == 300 && m[2] == "":
				log.errorf(i+1, m[1], "versions above 100 require the es profile")
			case v == 300 && !modern:
				log.errorf(i+1, "version", "ES 3.00 shaders are not supported by this context")
			}
			info.version = v
		}
		lines[i] = ""
	}
	src = strings.Join(lines, "\n")

	statements := splitStatements(src, &log)
	hasMain := false
	for _, st := range statements {
		text := strings.TrimSpace(st.text)
		if text == "" {
			continue
		}
		if st.body {
			if mainRe.MatchString(text) {
				hasMain = true
			}
			continue
		}
		parseDeclaration(info, text, st.line, &log)
	}
	if !hasMain {
		log.errorf(lineCount(src), "", "Missing main()")
	}
	if s := log.String(); s != "" {
		return nil, s
	}
	return info, ""
}

func lineCount(s string) int {
	return strings.Count(s, "\n") + 1
}

// stripComments blanks comments while keeping line breaks.
func stripComments(src string) string {
	var b strings.Builder
	for i := 0; i < len(src); i++ {
		switch {
		case strings.HasPrefix(src[i:], "//"):
			for i < len(src) && src[i] != '\n' {
				i++
			}
			if i < len(src) {
				b.WriteByte('\n')
			}
		case strings.HasPrefix(src[i:], "/*"):
			i += 2
			for i < len(src) && !strings.HasPrefix(src[i:], "*/") {
				if src[i] == '\n' {
					b.WriteByte('\n')
				}
				i++
			}
			i++
			b.WriteByte(' ')
		default:
			b.WriteByte(src[i])
		}
	}
	return b.String()
}

type statement struct {
	text string
	line int
	body bool
}

// splitStatements splits global scope into declarations ending in ';' and
// function definitions ending in a closing brace.
func splitStatements(src string, log *compileLog) []statement {
	var (
		out     []statement
		start   int
		line    = 1
		first   int
		braces  int
		parens  int
		lastEnd int // offset after the last ';', '{' or '}'
		opens   []int
	)
	emit := func(end int, body bool) {
		out = append(out, statement{text: src[start:end], line: first, body: body})
		first = 0
	}
	for i := 0; i < len(src); i++ {
		c := src[i]
		if first == 0 && c > ' ' {
			first = line
		}
		switch c {
		case '\n':
			line++
		case '(':
			parens++
		case ')':
			parens--
			if parens < 0 {
				log.errorf(line, ")", "syntax error")
				parens = 0
			}
		case '{':
			braces++
			opens = append(opens, line)
			lastEnd = i + 1
		case '}':
			if braces == 0 {
				log.errorf(line, "}", "syntax error")
				continue
			}
			if strings.TrimSpace(src[lastEnd:i]) != "" {
				log.errorf(line, "}", "syntax error: expected ';'")
			}
			braces--
			opens = opens[:len(opens)-1]
			lastEnd = i + 1
			if braces == 0 {
				emit(i+1, true)
				start = i + 1
			}
		case ';':
			lastEnd = i + 1
			if braces == 0 {
				if parens != 0 {
					log.errorf(line, ";", "syntax error: unbalanced parentheses")
					parens = 0
				}
				emit(i, false)
				start = i + 1
			}
		}
	}
	if braces > 0 {
		log.errorf(opens[len(opens)-1], "{", "syntax error: unexpected end of file, missing '}'")
	} else if rest := strings.TrimSpace(src[start:]); rest != "" {
		log.errorf(line, rest, "syntax error: unexpected end of file")
	}
	return out
}

func parseDeclaration(info *shaderInfo, text string, line int, log *compileLog) {
	fields := strings.Fields(strings.ReplaceAll(text, ",", " , "))
	if strings.HasPrefix(fields[0], "layout") {
		// layout(location = N) qualifiers carry no information we use.
		end := strings.Index(text, ")")
		if end < 0 {
			log.errorf(line, "layout", "syntax error")
			return
		}
		fields = strings.Fields(strings.ReplaceAll(text[end+1:], ",", " , "))
		if len(fields) == 0 {
			log.errorf(line, "layout", "syntax error")
			return
		}
	}

	if fields[0] == "precision" {
		if len(fields) != 3 || !qualifiers[fields[1]] {
			log.errorf(line, "precision", "syntax error")
		}
		return
	}

	st, ok := storageOf(info, fields[0], line, log)
	if !ok {
		return
	}
	rest := fields[1:]
	for len(rest) > 0 && qualifiers[rest[0]] {
		rest = rest[1:]
	}
	if len(rest) < 2 {
		log.errorf(line, fields[0], "syntax error")
		return
	}
	typ := rest[0]
	if _, known := typeComponents[typ]; !known {
		log.errorf(line, typ, "no matching type")
		return
	}
	if st != storageUniform && isSampler(typ) {
		log.errorf(line, typ, "samplers must be uniform")
		return
	}
	names := strings.Join(rest[1:], "")
	for _, n := range strings.Split(names, ",") {
		d := declaration{storage: st, typ: typ, line: line}
		if m := arrayRe.FindStringSubmatch(n); m != nil {
			d.name = m[1]
			d.array, _ = strconv.Atoi(m[2])
		} else if identRe.MatchString(n) {
			d.name = n
		} else {
			log.errorf(line, n, "syntax error")
			continue
		}
		if strings.HasPrefix(d.name, "gl_") {
			log.errorf(line, d.name, "reserved built-in name")
			continue
		}
		switch st {
		case storageInput:
			info.inputs = append(info.inputs, d)
		case storageOutput:
			info.outputs = append(info.outputs, d)
		case storageUniform:
			info.uniforms = append(info.uniforms, d)
		}
	}
}

// storageOf maps a leading storage qualifier to its role for the stage and
// language version.
func storageOf(info *shaderInfo, q string, line int, log *compileLog) (storage, bool) {
	es3 := info.version == 300
	switch q {
	case "uniform":
		return storageUniform, true
	case "const", "struct":
		return 0, false
	case "attribute":
		if es3 {
			log.errorf(line, q, "storage qualifier not supported in GLSL ES 3.00")
			return 0, false
		}
		if info.stage != gpu.VertexStage {
			log.errorf(line, q, "supported in vertex shaders only")
			return 0, false
		}
		return storageInput, true
	case "varying":
		if es3 {
			log.errorf(line, q, "storage qualifier not supported in GLSL ES 3.00")
			return 0, false
		}
		if info.stage == gpu.VertexStage {
			return storageOutput, true
		}
		return storageInput, true
	case "in", "out":
		if !es3 {
			log.errorf(line, q, "storage qualifier supported in GLSL ES 3.00 only")
			return 0, false
		}
		if q == "in" {
			return storageInput, true
		}
		return storageOutput, true
	}
	if _, known := typeComponents[q]; known {
		// Global variables without storage are plain globals.
		return 0, false
	}
	log.errorf(line, q, "syntax error")
	return 0, false
}
