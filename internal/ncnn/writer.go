package ncnn

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"
)

// arrayParamID is the id ncnn reserves for the first array-valued param:
// "-23300=count,v0,v1,...".
const arrayParamID = -23300

// arrayTypes lists layer types whose whole param list is one ncnn array.
// The first param of such a layer is already the element count.
var arrayTypes = map[string]bool{
	TypeSlice: true,
}

// WriteParam writes the text .param description of net.
//
// Format:
//
//	7767517
//	layer_count blob_count
//	Type name bottom_count top_count bottoms... tops... 0=p0 1=p1 ...
func WriteParam(w io.Writer, net *Net) error {
	bw := bufio.NewWriter(w)

	if _, err := fmt.Fprintf(bw, "%d\n%d %d\n", Magic, net.LayerCount(), net.BlobCount()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i := range net.Nodes {
		if _, err := bw.WriteString(paramLine(&net.Nodes[i])); err != nil {
			return fmt.Errorf("failed to write layer %q: %w", net.Nodes[i].Name, err)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to flush param: %w", err)
	}
	return nil
}

func paramLine(node *Node) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%-16s %-24s %d %d", node.Type, node.Name, len(node.Bottoms), len(node.Tops))
	for _, b := range node.Bottoms {
		sb.WriteString(" ")
		sb.WriteString(b)
	}
	for _, t := range node.Tops {
		sb.WriteString(" ")
		sb.WriteString(t)
	}

	if arrayTypes[node.Type] && len(node.Params) > 0 {
		fmt.Fprintf(&sb, " %d=%s", arrayParamID, strings.Join(node.Params, ","))
	} else {
		for i, p := range node.Params {
			fmt.Fprintf(&sb, " %d=%s", i, p)
		}
	}
	sb.WriteString("\n")
	return sb.String()
}

// WriteBin writes every weight blob of net as little-endian float32, layer by
// layer in record order. The leading single-zero blobs of Convolution and
// InnerProduct records become ncnn's 4-byte raw-float32 storage tag.
func WriteBin(w io.Writer, net *Net) error {
	bw := bufio.NewWriter(w)
	buf := make([]byte, 4)

	for i := range net.Nodes {
		for j, blob := range net.Nodes[i].Weights {
			for _, v := range blob.Data() {
				binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
				if _, err := bw.Write(buf); err != nil {
					return fmt.Errorf("failed to write weight %d of layer %q: %w", j, net.Nodes[i].Name, err)
				}
			}
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to flush bin: %w", err)
	}
	return nil
}
