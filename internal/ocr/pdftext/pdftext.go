// Package pdftext reads the text layer of PDF uploads with pdfcpu.
package pdftext

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"docverify/internal/model"
	"docverify/internal/ocr"
)

// maxPages bounds how much of a large PDF is read.
const maxPages = 5

// Engine extracts text drawn by Tj/TJ operators. Scanned PDFs without a text
// layer come back with low confidence.
type Engine struct {
	conf *pdfmodel.Configuration
}

var _ ocr.Engine = (*Engine)(nil)

// New creates a PDF text Engine using relaxed validation.
func New() *Engine {
	conf := pdfmodel.NewDefaultConfiguration()
	conf.ValidationMode = pdfmodel.ValidationRelaxed
	return &Engine{conf: conf}
}

func (e *Engine) Recognize(ctx context.Context, media model.MediaType, data []byte) (model.RecognizedText, error) {
	if media != model.MediaTypePDF {
		return model.RecognizedText{}, fmt.Errorf("%w: %s", ocr.ErrNoEngine, media)
	}

	pctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), e.conf)
	if err != nil {
		return model.RecognizedText{}, fmt.Errorf("%w: %w", ocr.ErrUnreadable, err)
	}

	pages := pctx.PageCount
	if pages > maxPages {
		pages = maxPages
	}

	var lines []string
	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return model.RecognizedText{}, err
		}
		r, err := pdfcpu.ExtractPageContent(pctx, i)
		if err != nil {
			return model.RecognizedText{}, fmt.Errorf("%w: page %d: %w", ocr.ErrUnreadable, i, err)
		}
		if r == nil {
			continue
		}
		content, err := io.ReadAll(r)
		if err != nil {
			return model.RecognizedText{}, fmt.Errorf("%w: page %d: %w", ocr.ErrUnreadable, i, err)
		}
		lines = append(lines, TextFromContent(string(content))...)
	}

	text := strings.TrimSpace(strings.Join(lines, "\n"))
	return model.RecognizedText{
		Content:    text,
		Confidence: ocr.TextConfidence(text, 0.90, 0.40, 50),
	}, nil
}

// TextFromContent returns the text shown by each Tj, TJ, ' and " operator in
// a content stream, one entry per operator. Literal and hex string operands
// are decoded; TJ kerning of a fifth of an em or more reads as a space.
func TextFromContent(content string) []string {
	var (
		out      []string
		operands []string
		inArray  bool
	)
	for i := 0; i < len(content); {
		ch := content[i]
		switch {
		case isWhite(ch):
			i++
		case ch == '%':
			for i < len(content) && content[i] != '\n' && content[i] != '\r' {
				i++
			}
		case ch == '(':
			str, n := readLiteral(content[i:])
			operands = append(operands, str)
			i += n
		case ch == '<' && i+1 < len(content) && content[i+1] == '<',
			ch == '>' && i+1 < len(content) && content[i+1] == '>':
			i += 2
		case ch == '<':
			str, n := readHex(content[i:])
			operands = append(operands, str)
			i += n
		case ch == '[':
			inArray = true
			i++
		case ch == ']':
			inArray = false
			i++
		default:
			tok := readToken(content[i:])
			if tok == "" {
				i++
				continue
			}
			i += len(tok)
			if tok[0] == '/' {
				continue
			}
			if v, err := strconv.ParseFloat(tok, 64); err == nil {
				if inArray && v <= -200 {
					operands = append(operands, " ")
				}
				continue
			}
			switch tok {
			case "Tj", "TJ", "'", `"`:
				if s := strings.Join(strings.Fields(strings.Join(operands, "")), " "); s != "" {
					out = append(out, s)
				}
			}
			operands = operands[:0]
			inArray = false
		}
	}
	return out
}

func isWhite(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', 0:
		return true
	}
	return false
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return isWhite(c)
}

// readToken returns a name (with its leading slash), number or operator.
func readToken(s string) string {
	i := 0
	if s[0] == '/' {
		i = 1
	}
	for i < len(s) && !isDelimiter(s[i]) {
		i++
	}
	return s[:i]
}

// readLiteral decodes the balanced (...) string at the start of s and returns
// it with the number of bytes consumed.
func readLiteral(s string) (string, int) {
	var b []byte
	depth := 0
	i := 0
	for i < len(s) {
		c := s[i]
		switch c {
		case '(':
			depth++
			if depth > 1 {
				b = append(b, c)
			}
			i++
		case ')':
			depth--
			i++
			if depth == 0 {
				return decodeBytes(b), i
			}
			b = append(b, c)
		case '\\':
			i++
			if i >= len(s) {
				break
			}
			e := s[i]
			i++
			switch e {
			case 'n', 'r', 't':
				b = append(b, ' ')
			case 'b', 'f':
			case '\r':
				if i < len(s) && s[i] == '\n' {
					i++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for k := 0; k < 2 && i < len(s) && s[i] >= '0' && s[i] <= '7'; k++ {
						v = v*8 + int(s[i]-'0')
						i++
					}
					b = append(b, byte(v))
				} else {
					b = append(b, e)
				}
			}
		case '\n', '\r':
			b = append(b, ' ')
			i++
		default:
			b = append(b, c)
			i++
		}
	}
	return decodeBytes(b), i
}

// readHex decodes the <...> string at the start of s. An odd final digit is
// padded with zero.
func readHex(s string) (string, int) {
	end := strings.IndexByte(s, '>')
	if end < 0 {
		end = len(s) - 1
	}
	var digits []byte
	for i := 1; i < end+1 && i < len(s); i++ {
		if c := s[i]; isHexDigit(c) {
			digits = append(digits, c)
		}
	}
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	b := make([]byte, len(digits)/2)
	if _, err := hex.Decode(b, digits); err != nil {
		return "", end + 1
	}
	return decodeBytes(b), end + 1
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// decodeBytes reads UTF-16BE when the string carries its byte order mark and
// treats anything else that is not valid UTF-8 as Latin-1.
func decodeBytes(b []byte) string {
	if len(b) >= 2 && b[0] == 0xfe && b[1] == 0xff {
		u := make([]uint16, 0, (len(b)-2)/2)
		for i := 2; i+1 < len(b); i += 2 {
			u = append(u, uint16(b[i])<<8|uint16(b[i+1]))
		}
		return string(utf16.Decode(u))
	}
	if utf8.Valid(b) {
		return string(b)
	}
	r := make([]rune, len(b))
	for i, c := range b {
		r[i] = rune(c)
	}
	return string(r)
}
