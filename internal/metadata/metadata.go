package metadata

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"prompt-explorer/internal/logging"
)

// pngSignature is the fixed 8-byte header every PNG file starts with.
var pngSignature = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// prioritizedKeys are the generator-metadata keywords that most tools
// write prompts under. Their values always come first in the extracted
// text, in this order.
var prioritizedKeys = []string{"prompt", "parameters", "description", "comment"}

// maxTextChunk bounds how much of a single text chunk is read. Prompt
// payloads are a few KB; anything larger is almost certainly not text
// worth showing.
const maxTextChunk = 1 << 20

// Extract returns the prompt text embedded in a PNG file's text chunks.
//
// Values for prioritized keywords (prompt, parameters, description,
// comment; compared case-insensitively) come first, followed by any
// other textual values in the order they appear in the file. Values are
// trimmed, deduplicated by exact match, and joined with a blank line.
//
// Extract never fails: a missing file, a non-PNG file, or a corrupt
// chunk stream all yield an empty string.
func Extract(path string) string {
	f, err := os.Open(path)
	if err != nil {
		logging.Debug("metadata: cannot open %s: %v", path, err)
		return ""
	}
	defer f.Close()

	texts := readTextChunks(f, path)
	if len(texts) == 0 {
		return ""
	}

	seen := make(map[string]bool)
	var ordered []string

	appendValue := func(value string) {
		value = strings.TrimSpace(value)
		if value == "" || seen[value] {
			return
		}
		seen[value] = true
		ordered = append(ordered, value)
	}

	for _, key := range prioritizedKeys {
		for _, tc := range texts {
			if strings.EqualFold(tc.keyword, key) {
				appendValue(tc.value)
			}
		}
	}
	for _, tc := range texts {
		if isPrioritized(tc.keyword) {
			continue
		}
		appendValue(tc.value)
	}

	return strings.Join(ordered, "\n\n")
}

func isPrioritized(keyword string) bool {
	for _, key := range prioritizedKeys {
		if strings.EqualFold(keyword, key) {
			return true
		}
	}
	return false
}

// textChunk is one decoded keyword/value pair from a tEXt, zTXt, or
// iTXt chunk, in file order.
type textChunk struct {
	keyword string
	value   string
}

// readTextChunks walks the chunk stream and collects every textual
// chunk it can decode. Any structural error ends the walk with whatever
// was collected so far.
func readTextChunks(r io.Reader, path string) []textChunk {
	header := make([]byte, 8)
	if _, err := io.ReadFull(r, header); err != nil || !bytes.Equal(header, pngSignature) {
		return nil
	}

	var chunks []textChunk
	var hdr [8]byte
	for {
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return chunks
		}
		length := binary.BigEndian.Uint32(hdr[:4])
		chunkType := string(hdr[4:8])

		if chunkType == "IEND" {
			return chunks
		}

		isText := chunkType == "tEXt" || chunkType == "zTXt" || chunkType == "iTXt"
		if !isText || length > maxTextChunk {
			// Skip data plus the 4-byte CRC.
			if _, err := io.CopyN(io.Discard, r, int64(length)+4); err != nil {
				return chunks
			}
			continue
		}

		data := make([]byte, length)
		if _, err := io.ReadFull(r, data); err != nil {
			return chunks
		}
		// CRC is not verified; a bad checksum should not cost the
		// user their prompt text.
		if _, err := io.CopyN(io.Discard, r, 4); err != nil {
			return chunks
		}

		keyword, value, ok := decodeTextChunk(chunkType, data)
		if !ok {
			logging.Debug("metadata: undecodable %s chunk in %s", chunkType, path)
			continue
		}
		chunks = append(chunks, textChunk{keyword: keyword, value: value})
	}
}

// decodeTextChunk decodes the payload of one of the three PNG text
// chunk types into a keyword and value.
func decodeTextChunk(chunkType string, data []byte) (keyword, value string, ok bool) {
	sep := bytes.IndexByte(data, 0)
	if sep < 0 {
		return "", "", false
	}
	keyword = decodeLatin1(data[:sep])
	rest := data[sep+1:]

	switch chunkType {
	case "tEXt":
		return keyword, decodeLatin1(rest), true

	case "zTXt":
		// One compression-method byte, then zlib data.
		if len(rest) < 1 || rest[0] != 0 {
			return "", "", false
		}
		inflated, err := inflate(rest[1:])
		if err != nil {
			return "", "", false
		}
		return keyword, decodeLatin1(inflated), true

	case "iTXt":
		// compression flag, compression method, language tag\0,
		// translated keyword\0, UTF-8 text.
		if len(rest) < 2 {
			return "", "", false
		}
		compressed := rest[0] == 1
		rest = rest[2:]
		langEnd := bytes.IndexByte(rest, 0)
		if langEnd < 0 {
			return "", "", false
		}
		rest = rest[langEnd+1:]
		transEnd := bytes.IndexByte(rest, 0)
		if transEnd < 0 {
			return "", "", false
		}
		text := rest[transEnd+1:]
		if compressed {
			inflated, err := inflate(text)
			if err != nil {
				return "", "", false
			}
			text = inflated
		}
		return keyword, string(text), true
	}
	return "", "", false
}

func inflate(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(io.LimitReader(zr, maxTextChunk))
}

// decodeLatin1 converts a byte slice to a string, treating it as UTF-8
// when valid and Latin-1 otherwise. tEXt and zTXt payloads are Latin-1
// per the PNG spec, but generators routinely write UTF-8 into them.
func decodeLatin1(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	var b strings.Builder
	b.Grow(len(data))
	for _, c := range data {
		b.WriteRune(rune(c))
	}
	return b.String()
}
