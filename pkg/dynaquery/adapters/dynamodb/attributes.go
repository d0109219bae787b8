package dynamodb

import (
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/nonibytes/dynaquery/pkg/dynaquery/value"
)

// fromAttribute converts a DynamoDB attribute. Sets become lists and maps
// are kept as JSON text.
func fromAttribute(av types.AttributeValue) value.Value {
	switch t := av.(type) {
	case *types.AttributeValueMemberS:
		return value.Text(t.Value)
	case *types.AttributeValueMemberN:
		return value.Parse(t.Value)
	case *types.AttributeValueMemberB:
		return value.Bytes(t.Value)
	case *types.AttributeValueMemberBOOL:
		return value.Bool(t.Value)
	case *types.AttributeValueMemberNULL:
		return value.Null()
	case *types.AttributeValueMemberL:
		list := make([]value.Value, len(t.Value))
		for i, e := range t.Value {
			list[i] = fromAttribute(e)
		}
		return value.List(list...)
	case *types.AttributeValueMemberSS:
		list := make([]value.Value, len(t.Value))
		for i, s := range t.Value {
			list[i] = value.Text(s)
		}
		return value.List(list...)
	case *types.AttributeValueMemberNS:
		list := make([]value.Value, len(t.Value))
		for i, s := range t.Value {
			list[i] = value.Parse(s)
		}
		return value.List(list...)
	case *types.AttributeValueMemberBS:
		list := make([]value.Value, len(t.Value))
		for i, b := range t.Value {
			list[i] = value.Bytes(b)
		}
		return value.List(list...)
	case *types.AttributeValueMemberM:
		m := make(map[string]any, len(t.Value))
		for k, e := range t.Value {
			m[k] = fromAttribute(e).Native()
		}
		b, err := json.Marshal(m)
		if err != nil {
			return value.Null()
		}
		return value.Text(string(b))
	default:
		return value.Null()
	}
}

func toAttribute(v value.Value) types.AttributeValue {
	switch v.Kind() {
	case value.KindInt, value.KindReal:
		return &types.AttributeValueMemberN{Value: value.Canonical(v)}
	case value.KindText:
		s, _ := v.AsText()
		return &types.AttributeValueMemberS{Value: s}
	case value.KindBytes:
		b, _ := v.AsBytes()
		return &types.AttributeValueMemberB{Value: b}
	case value.KindBool:
		b, _ := v.AsBool()
		return &types.AttributeValueMemberBOOL{Value: b}
	case value.KindList:
		items := v.Items()
		list := make([]types.AttributeValue, len(items))
		for i, e := range items {
			list[i] = toAttribute(e)
		}
		return &types.AttributeValueMemberL{Value: list}
	default:
		return &types.AttributeValueMemberNULL{Value: true}
	}
}

func fromItem(raw map[string]types.AttributeValue) map[string]value.Value {
	out := make(map[string]value.Value, len(raw))
	for k, av := range raw {
		out[k] = fromAttribute(av)
	}
	return out
}

func toItem(attrs map[string]value.Value) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(attrs))
	for k, v := range attrs {
		if v.IsNull() {
			continue
		}
		out[k] = toAttribute(v)
	}
	return out
}
