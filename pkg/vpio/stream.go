package vpio

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// WriteTextproto JSON-encodes a single-root compiled node record to w,
// standing in for the textproto single-root model format: one record,
// children inlined.
func WriteTextproto(w io.Writer, root any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(root)
}

// ReadTextproto decodes a single-root compiled node record from r.
func ReadTextproto(r io.Reader, out any) error {
	return json.NewDecoder(r).Decode(out)
}

// WriteNodeListStream writes nodes as a length-prefixed sequence of
// JSON-encoded records, standing in for the Riegeli record stream the real
// system emits: the entries are already in the topological post-order the
// serializer produced, the last one being the root.
func WriteNodeListStream(w io.Writer, nodes []any) error {
	bw := bufio.NewWriter(w)
	for _, n := range nodes {
		payload, err := json.Marshal(n)
		if err != nil {
			return fmt.Errorf("encode node-list entry: %w", err)
		}
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
		if _, err := bw.Write(lenBuf[:]); err != nil {
			return fmt.Errorf("write node-list length prefix: %w", err)
		}
		if _, err := bw.Write(payload); err != nil {
			return fmt.Errorf("write node-list entry: %w", err)
		}
	}
	return bw.Flush()
}

// ReadNodeListStream reads back a stream written by WriteNodeListStream,
// decoding each entry via decode.
func ReadNodeListStream(r io.Reader, decode func([]byte) (any, error)) ([]any, error) {
	br := bufio.NewReader(r)
	var out []any

	for {
		var lenBuf [4]byte
		if _, err := io.ReadFull(br, lenBuf[:]); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("read node-list length prefix: %w", err)
		}

		n := binary.BigEndian.Uint32(lenBuf[:])
		payload := make([]byte, n)
		if _, err := io.ReadFull(br, payload); err != nil {
			return nil, fmt.Errorf("read node-list entry: %w", err)
		}

		entry, err := decode(payload)
		if err != nil {
			return nil, fmt.Errorf("decode node-list entry: %w", err)
		}
		out = append(out, entry)
	}

	return out, nil
}
