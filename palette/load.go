package palette

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/setanarut/beadgrid/colorspace"
	"golang.org/x/image/riff"
)

// ============ HEX LIST ============

// ParseHexList reads one color per line in the form
//
//	ID [NAME...] #RRGGBB
//
// Blank lines and lines starting with "//" are skipped. A line holding only
// a hex value gets a generated ID.
func ParseHexList(r io.Reader) (Palette, error) {
	var out Palette
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "//") {
			continue
		}
		fields := strings.Fields(text)
		rgb, err := colorspace.ParseHex(fields[len(fields)-1])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		c := Color{RGB: rgb}
		switch len(fields) {
		case 1:
			c.ID = generatedID(len(out))
		case 2:
			c.ID = fields[0]
		default:
			c.ID = fields[0]
			c.Name = strings.Join(fields[1:len(fields)-1], " ")
		}
		out = append(out, c)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("could not read palette: %w", err)
	}
	if len(out) == 0 {
		return nil, ErrEmptyPalette
	}
	if err := checkIDs(out); err != nil {
		return nil, err
	}
	return out, nil
}

// checkIDs rejects palettes in which an ID appears twice. Colors are
// identified by ID alone.
func checkIDs(p Palette) error {
	seen := make(map[string]int, len(p))
	for i, c := range p {
		if j, dup := seen[c.ID]; dup {
			return fmt.Errorf("%w: %q at %d and %d", ErrDuplicateID, c.ID, j, i)
		}
		seen[c.ID] = i
	}
	return nil
}

func generatedID(i int) string {
	return fmt.Sprintf("PAL-%03d", i)
}

// ============ JSON ============

type jsonColor struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Hex  string `json:"hex"`
}

// ReadJSON reads an array of {"id", "name", "hex"} objects.
func ReadJSON(r io.Reader) (Palette, error) {
	var in []jsonColor
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return nil, fmt.Errorf("could not decode palette: %w", err)
	}
	if len(in) == 0 {
		return nil, ErrEmptyPalette
	}
	out := make(Palette, 0, len(in))
	for i, jc := range in {
		rgb, err := colorspace.ParseHex(jc.Hex)
		if err != nil {
			return nil, fmt.Errorf("color %d: %w", i, err)
		}
		id := jc.ID
		if id == "" {
			id = generatedID(i)
		}
		out = append(out, Color{ID: id, Name: jc.Name, RGB: rgb})
	}
	if err := checkIDs(out); err != nil {
		return nil, err
	}
	return out, nil
}

// WriteJSON writes p in the format read by ReadJSON.
func WriteJSON(w io.Writer, p Palette) error {
	out := make([]jsonColor, len(p))
	for i, c := range p {
		out[i] = jsonColor{ID: c.ID, Name: c.Name, Hex: c.Hex()}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// ============ RIFF PAL ============

var (
	riffType = riff.FourCC{'R', 'I', 'F', 'F'}
	palType  = riff.FourCC{'P', 'A', 'L', ' '}
	dataType = riff.FourCC{'d', 'a', 't', 'a'}
)

const palVersion = 0x0300

// ReadRIFF reads a Microsoft RIFF palette. RIFF palettes carry no names,
// so every color gets a generated ID in file order.
func ReadRIFF(r io.Reader) (Palette, error) {
	formType, rd, err := riff.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("could not open RIFF stream: %w", err)
	} else if formType != palType {
		return nil, fmt.Errorf("unsupported RIFF content type: %s", string(formType[:]))
	}

	var out Palette
	for chunk := 0; ; chunk++ {
		id, _, data, err := rd.Next()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, fmt.Errorf("could not read chunk #%d: %w", chunk, err)
		}
		if id != dataType {
			continue
		}
		if out, err = readPalChunk(data, out); err != nil {
			return nil, fmt.Errorf("chunk #%d: %w", chunk, err)
		}
	}
	if len(out) == 0 {
		return nil, ErrEmptyPalette
	}
	return out, nil
}

func readPalChunk(r io.Reader, out Palette) (Palette, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return out, fmt.Errorf("could not read palette header: %w", err)
	}
	if ver := binary.LittleEndian.Uint16(hdr[:2]); ver != palVersion {
		return out, fmt.Errorf("unsupported palette version: %#04x", ver)
	}
	count := int(binary.LittleEndian.Uint16(hdr[2:]))
	entry := make([]byte, 4)
	for i := range count {
		if _, err := io.ReadFull(r, entry); err != nil {
			return out, fmt.Errorf("could not read color %d/%d: %w", i, count, err)
		}
		out = append(out, Color{
			ID:  generatedID(len(out)),
			RGB: colorspace.Pixel{R: entry[0], G: entry[1], B: entry[2]},
		})
	}
	return out, nil
}

// WriteRIFF writes p as a single-chunk RIFF palette. IDs and names are lost.
func WriteRIFF(w io.Writer, p Palette) error {
	var buf bytes.Buffer
	chunkSize := 4 + len(p)*4
	buf.Write(riffType[:])
	buf.Write(binary.LittleEndian.AppendUint32(nil, uint32(4+8+chunkSize)))
	buf.Write(palType[:])
	buf.Write(dataType[:])
	buf.Write(binary.LittleEndian.AppendUint32(nil, uint32(chunkSize)))
	buf.Write(binary.LittleEndian.AppendUint16(nil, palVersion))
	buf.Write(binary.LittleEndian.AppendUint16(nil, uint16(len(p))))
	for _, c := range p {
		buf.Write([]byte{c.RGB.R, c.RGB.G, c.RGB.B, 0})
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("could not save palette: %w", err)
	}
	return nil
}

// ============ FILES ============

// Load reads a palette file, picking the format from the extension:
// .pal is RIFF, .json is JSON and anything else is a hex list.
func Load(path string) (Palette, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var p Palette
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pal":
		p, err = ReadRIFF(f)
	case ".json":
		p, err = ReadJSON(f)
	default:
		p, err = ParseHexList(f)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}
