package ix

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/juju/errors"

	"github.com/lannywong2000/PeterDB/dbms/index/ixpage"
)

// PrintBTree writes the tree as nested JSON. Nodes print their composite keys and
// children, leaves group the RIDs of equal keys:
//
//	{"keys":["(5,(0,0))"],"children":[{"keys":["1:[(0,3)]","3:[(0,1)]"]},{"keys":["5:[(0,0),(1,2)]"]}]}
func (m *Manager) PrintBTree(h *Handle, kt ixpage.KeyType, w io.Writer) error {
	ok, err := h.prepare(kt)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	if !ok {
		bw.WriteString(`{"keys":[]}`)
	} else if err := printPage(h, h.root, bw); err != nil {
		return err
	}
	return errors.Trace(bw.Flush())
}

func printPage(h *Handle, num uint32, w *bufio.Writer) error {
	p, err := h.readPage(num)
	if err != nil {
		return err
	}
	w.WriteString(`{"keys":[`)
	if p.IsLeaf() {
		entries := p.LeafEntries(h.keyType)
		for i := 0; i < len(entries); {
			if i > 0 {
				w.WriteByte(',')
			}
			rids := []string{entries[i].RID.String()}
			j := i + 1
			for j < len(entries) && ixpage.CompareKeys(entries[j].Key, entries[i].Key) == 0 {
				rids = append(rids, entries[j].RID.String())
				j++
			}
			fmt.Fprintf(w, `"%s:[%s]"`, formatKey(entries[i].Key), strings.Join(rids, ","))
			i = j
		}
		w.WriteString("]}")
		return nil
	}

	for i, e := range p.NodeEntries(h.keyType) {
		if i > 0 {
			w.WriteByte(',')
		}
		fmt.Fprintf(w, `"(%s,%s)"`, formatKey(e.Key), e.RID)
	}
	w.WriteString(`],"children":[`)
	for i, c := range p.Children() {
		if i > 0 {
			w.WriteByte(',')
		}
		if err := printPage(h, c, w); err != nil {
			return err
		}
	}
	w.WriteString("]}")
	return nil
}

// formatKey prints floats with six significant digits, like a C++ stream.
func formatKey(k ixpage.Key) string {
	if k.Type() == ixpage.TypeFloat {
		return fmt.Sprintf("%.6g", k.Float())
	}
	return k.String()
}

// ExportDOT renders the tree as a Graphviz digraph: one table per page, edges to
// children and dashed edges along the leaf chain.
func (m *Manager) ExportDOT(h *Handle, w io.Writer) error {
	if h.store == nil {
		return errors.NotValidf("closed handle")
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "digraph BTree {")
	fmt.Fprintln(bw, `  graph [ranksep=0.8, nodesep=0.5, bgcolor="#ffffff", rankdir=TB];`)
	fmt.Fprintln(bw, `  node [shape=none, fontname="Helvetica", fontsize=10];`)
	fmt.Fprintln(bw, `  edge [arrowsize=0.8, color="#444444"];`)

	if !h.Empty() {
		if err := h.readMeta(); err != nil {
			return err
		}
		d := &dotWriter{h: h, w: bw, names: make(map[uint32]string)}
		if _, err := d.page(h.root); err != nil {
			return err
		}
		d.leafChain()
	}
	fmt.Fprintln(bw, "}")
	return errors.Trace(bw.Flush())
}

type dotWriter struct {
	h      *Handle
	w      *bufio.Writer
	names  map[uint32]string
	leaves []uint32
	next   map[uint32]uint32
}

func (d *dotWriter) page(num uint32) (string, error) {
	if name, ok := d.names[num]; ok {
		return name, nil
	}
	name := fmt.Sprintf("page%d", num)
	d.names[num] = name

	p, err := d.h.readPage(num)
	if err != nil {
		return "", err
	}
	size := len(p)
	usedPct := 100 - float64(p.FreeSpace())/float64(size)*100

	if p.IsLeaf() {
		var b strings.Builder
		fmt.Fprintf(&b, `<<TABLE BORDER="0" CELLBORDER="1" CELLSPACING="0" CELLPADDING="4">`+
			`<TR><TD COLSPAN="2" BGCOLOR="#D5E8D4"><B>PAGE %d (LEAF)</B><BR/><FONT POINT-SIZE="8">Fill: %.1f%%</FONT></TD></TR>`+
			`<TR><TD PORT="keys" BGCOLOR="#F5F5F5" ALIGN="LEFT">`, num, usedPct)
		for _, e := range p.LeafEntries(d.h.keyType) {
			fmt.Fprintf(&b, `<B>%s</B> <FONT COLOR="#666666">%s</FONT><BR/>`, dotEscape(formatKey(e.Key)), e.RID)
		}
		nextLabel := "NULL"
		if next := p.NextLeaf(); next != ixpage.NoPage {
			nextLabel = fmt.Sprintf("%d", next)
			if d.next == nil {
				d.next = make(map[uint32]uint32)
			}
			d.next[num] = next
		}
		fmt.Fprintf(&b, `</TD><TD PORT="next" BGCOLOR="#E1F5FE" VALIGN="MIDDLE">Next: %s</TD></TR></TABLE>>`, nextLabel)
		fmt.Fprintf(d.w, "  %s [label=%s];\n", name, b.String())
		d.leaves = append(d.leaves, num)
		return name, nil
	}

	entries := p.NodeEntries(d.h.keyType)
	children := p.Children()
	var b strings.Builder
	fmt.Fprintf(&b, `<<TABLE BORDER="0" CELLBORDER="1" CELLSPACING="0" CELLPADDING="4">`+
		`<TR><TD COLSPAN="%d" BGCOLOR="#DAE8FC"><B>PAGE %d (NODE)</B><BR/><FONT POINT-SIZE="8">Fill: %.1f%%</FONT></TD></TR><TR>`,
		len(entries)*2+1, num, usedPct)
	for i, e := range entries {
		fmt.Fprintf(&b, `<TD PORT="f%d" BGCOLOR="#E1F5FE">P:%d</TD><TD BGCOLOR="#FFFFFF"><B>%s</B><BR/><FONT POINT-SIZE="7">%s</FONT></TD>`,
			i, children[i], dotEscape(formatKey(e.Key)), e.RID)
	}
	fmt.Fprintf(&b, `<TD PORT="f%d" BGCOLOR="#E1F5FE">P:%d</TD></TR></TABLE>>`, len(entries), children[len(entries)])
	fmt.Fprintf(d.w, "  %s [label=%s];\n", name, b.String())

	for i, c := range children {
		childName, err := d.page(c)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(d.w, "  %s:f%d -> %s;\n", name, i, childName)
	}
	return name, nil
}

func (d *dotWriter) leafChain() {
	if len(d.leaves) < 2 {
		return
	}
	fmt.Fprintln(d.w, "  { rank=same;")
	for _, num := range d.leaves {
		fmt.Fprintf(d.w, "    %s;\n", d.names[num])
	}
	fmt.Fprintln(d.w, "  }")
	for _, num := range d.leaves {
		next, ok := d.next[num]
		if !ok {
			continue
		}
		if target, ok := d.names[next]; ok {
			fmt.Fprintf(d.w, "  %s:next -> %s [style=dashed, color=\"#03A9F4\", constraint=false, tailclip=false];\n", d.names[num], target)
		}
	}
}

var dotReplacer = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func dotEscape(s string) string { return dotReplacer.Replace(s) }
