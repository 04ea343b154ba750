package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"kuber/internal/logger"
	"kuber/internal/oracle"
	"kuber/internal/pkg/jsonutil"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
)

const classifySystemPrompt = `You classify one user message for an Indian stock broking assistant.
Respond with a single JSON object and nothing else:
{"intent": "...", "symbol": "...", "quantity": "...", "side": "...", "order_type": "...", "limit_price": "..."}
"intent" must be exactly one of: place_order, get_stock_info, analyze_portfolio, market_movers, unknown.
Include only the fields the message actually mentions. "side" is BUY or SELL.
"order_type" is MARKET or LIMIT. Do not invent values the user did not state.`

const intentSchemaJSON = `{
  "type": "object",
  "required": ["intent"],
  "properties": {
    "intent": {
      "type": "string",
      "enum": ["place_order", "get_stock_info", "analyze_portfolio", "market_movers", "unknown"]
    },
    "symbol":      {"type": ["string", "null"]},
    "quantity":    {"type": ["string", "number", "null"]},
    "side":        {"type": ["string", "null"]},
    "order_type":  {"type": ["string", "null"]},
    "limit_price": {"type": ["string", "number", "null"]}
  }
}`

var intentSchema = jsonschema.MustCompileString("intent.json", intentSchemaJSON)

var extractedFields = []string{"symbol", "quantity", "side", "order_type", "limit_price"}

type Classifier struct {
	oracle oracle.Oracle
}

func NewClassifier(o oracle.Oracle) *Classifier {
	return &Classifier{oracle: o}
}

// Classify maps one chat turn to an Intent. A transport failure surfaces as
// ErrOracleUnavailable; a malformed or off-schema answer degrades to
// KindUnknown so nothing partial ever flows downstream.
func (c *Classifier) Classify(ctx context.Context, rawText string) (Intent, error) {
	rawText = strings.TrimSpace(rawText)
	if rawText == "" {
		return Intent{Kind: KindUnknown, RawText: rawText}, nil
	}
	answer, err := c.oracle.Complete(ctx, oracle.Request{
		Purpose: "classify",
		System:  classifySystemPrompt,
		User:    rawText,
	})
	if err != nil {
		return Intent{}, fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
	}
	it, ok := parseIntent(rawText, answer)
	if !ok {
		logger.Warnf("classifier: off-schema oracle output, falling back to unknown")
		return Intent{Kind: KindUnknown, RawText: rawText}, nil
	}
	return it, nil
}

func parseIntent(rawText, answer string) (Intent, bool) {
	doc, ok := jsonutil.ExtractObject(answer)
	if !ok {
		return Intent{}, false
	}
	var decoded any
	if err := json.Unmarshal([]byte(doc), &decoded); err != nil {
		return Intent{}, false
	}
	if err := intentSchema.Validate(decoded); err != nil {
		return Intent{}, false
	}
	parsed := gjson.Parse(doc)
	kind := Kind(parsed.Get("intent").String())
	if !kind.Valid() {
		return Intent{}, false
	}
	fields := make(map[string]string)
	for _, name := range extractedFields {
		if v := parsed.Get(name); v.Exists() && v.Type != gjson.Null {
			if s := strings.TrimSpace(v.String()); s != "" {
				fields[name] = s
			}
		}
	}
	return Intent{Kind: kind, RawText: rawText, Fields: fields}, true
}
