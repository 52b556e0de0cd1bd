package grammar

import (
	"errors"
	"strings"

	"github.com/beevik/etree"
)

var joinRules = []Rule{
	{ToolType: ToolJoin, Name: "Join", Extract: extractJoin},
}

var errMissingJoinSide = errors.New("JoinInfo without connection attribute")

// extractJoin emits every key field twice per side: once as the key input and
// once as the output carried from that side.
func extractJoin(cfg *etree.Element) (Result, error) {
	var c collector

	for _, info := range cfg.FindElements("JoinInfo") {
		side := info.SelectAttrValue("connection", "")
		fields := info.FindElements("Field")
		if side == "" {
			if len(fields) == 0 {
				continue
			}
			return Result{}, errMissingJoinSide
		}
		lower := strings.ToLower(side)
		for _, field := range fields {
			name := field.SelectAttrValue("field", "")
			c.input(name, "join_key_"+lower, "Join key on "+side)
			c.output(name, "join_output_from_"+lower, "Output from "+side+" join key")
		}
	}

	return c.result(), nil
}
