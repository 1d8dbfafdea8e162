package grid

import (
	"encoding/json"

	"mobilepro.local/hunt-gateway/internal/model"
)

const lineProperties = `"ratePlan":{"type":"string","description":"Plan label shown on the bill."},` +
	`"mrc":{"type":"string","description":"Monthly recurring charge as a number, or \"Included\" when bundled."},` +
	`"discount":{"type":"number","description":"Monthly discount credit."},` +
	`"features":{"type":"number","description":"Add-on features charge."},` +
	`"eip":{"type":"number","description":"Device installment payment."},` +
	`"devicePromo":{"type":"number","description":"Monthly device promotion credit."},` +
	`"autopay":{"type":"string","enum":["Yes","No"],"description":"Autopay enrollment."}`

// ToolDefinitions describes the grid vocabulary to a language model. The tool
// names match Op values so tool calls decode directly through Decode.
func ToolDefinitions() []model.ToolDefinition {
	return []model.ToolDefinition{
		{
			Name:        string(OpUpdateLine),
			Description: "Update fields on an existing line of the proposed offer. Only supplied fields change.",
			InputSchema: json.RawMessage(`{"type":"object","required":["index"],"properties":{"index":{"type":"integer","description":"Zero-based line index."},` + lineProperties + `}}`),
		},
		{
			Name:        string(OpAddLine),
			Description: "Append a new line to the proposed offer. Omitted fields use defaults.",
			InputSchema: json.RawMessage(`{"type":"object","properties":{` + lineProperties + `}}`),
		},
		{
			Name:        string(OpRemoveLine),
			Description: "Remove the line at index from the proposed offer.",
			InputSchema: json.RawMessage(`{"type":"object","required":["index"],"properties":{"index":{"type":"integer","description":"Zero-based line index."}}}`),
		},
		{
			Name:        string(OpClearGrid),
			Description: "Remove every line from the proposed offer. Use before rebuilding it line by line.",
			InputSchema: json.RawMessage(`{"type":"object","properties":{}}`),
		},
	}
}
