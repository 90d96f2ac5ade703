package opcode

import (
	"bytes"
	"fmt"
)

// Disassemble renders one instruction per line as "%04d NAME operands".
// labels maps addresses to names (function entry points) and may be nil.
// Unknown words are printed as data and decoding resumes at the next word.
func Disassemble(ins Instructions, labels map[int]string) string {
	var out bytes.Buffer

	i := 0
	for i < len(ins) {
		if name, ok := labels[i]; ok {
			fmt.Fprintf(&out, "%s:\n", name)
		}

		def, err := Lookup(ins[i])
		if err != nil {
			fmt.Fprintf(&out, "%04d DATA %#x\n", i, ins[i])
			i++
			continue
		}

		operands, read := ReadOperands(def, ins[i+1:])
		fmt.Fprintf(&out, "%04d %s", i, def.Name)
		for _, o := range operands {
			fmt.Fprintf(&out, " %d", o)
		}
		if read < def.OperandCount {
			out.WriteString(" <truncated>")
		}
		out.WriteString("\n")

		i += 1 + read
	}

	return out.String()
}
