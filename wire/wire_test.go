package wire_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/idl"
	"github.com/Stephen-Kimoi/icp-evm-rust-bridge/wire"
)

var (
	resultType = idl.Variant(idl.F("Ok", idl.Nat64()), idl.F("Err", idl.Text()))
	nestedType = idl.Record(
		idl.F("name", idl.Text()),
		idl.F("total", idl.Nat()),
		idl.F("root", idl.Opt(idl.Text())),
		idl.F("items", idl.Vec(idl.Record(idl.F("id", idl.Nat64()), idl.F("tags", idl.Vec(idl.Text()))))),
		idl.F("status", resultType),
	)
)

func hugeNat() *big.Int {
	n, _ := new(big.Int).SetString("58750003716598352816469", 10)
	return n
}

func nestedValue(root idl.Value) idl.Value {
	return idl.RecordValue(
		idl.FV("name", idl.TextValue("blöck")),
		idl.FV("total", idl.NatValue(hugeNat())),
		idl.FV("root", root),
		idl.FV("items", idl.VecValue(
			idl.RecordValue(idl.FV("id", idl.Nat64Value(1)), idl.FV("tags", idl.VecValue())),
			idl.RecordValue(idl.FV("id", idl.Nat64Value(2)), idl.FV("tags", idl.VecValue(idl.TextValue("a"), idl.TextValue("b")))),
		)),
		idl.FV("status", idl.VariantValue("Err", idl.TextValue("counter uninitialized"))),
	)
}

func roundTrip(t *testing.T, ts []*idl.Type, vs []idl.Value) []idl.Value {
	t.Helper()
	m, err := wire.Encode(ts, vs)
	require.NoError(t, err)
	data, err := wire.Marshal(m)
	require.NoError(t, err)
	back, err := wire.Unmarshal(data)
	require.NoError(t, err)
	out, err := wire.Decode(ts, back)
	require.NoError(t, err)
	return out
}

func TestRoundTrip_Primitives(t *testing.T) {
	ts := []*idl.Type{idl.Text(), idl.Nat(), idl.Nat64(), idl.Nat()}
	vs := []idl.Value{
		idl.TextValue("0xabc"),
		idl.NatValue(hugeNat()),
		idl.Nat64Value(^uint64(0)),
		idl.NatUint64(0),
	}
	out := roundTrip(t, ts, vs)
	require.Len(t, out, len(vs))
	for i := range vs {
		assert.True(t, idl.ValueEqual(vs[i], out[i]), "value %d: %s != %s", i, vs[i], out[i])
	}
}

func TestRoundTrip_Composite(t *testing.T) {
	for _, root := range []idl.Value{idl.None(), idl.Some(idl.TextValue("0x56e8"))} {
		v := nestedValue(root)
		out := roundTrip(t, []*idl.Type{nestedType}, []idl.Value{v})
		require.Len(t, out, 1)
		assert.True(t, idl.ValueEqual(v, out[0]), "%s != %s", v, out[0])
	}
}

func TestRoundTrip_EmptyTuple(t *testing.T) {
	out := roundTrip(t, nil, nil)
	assert.Empty(t, out)
}

func TestRoundTrip_OptionalAbsentStaysAbsent(t *testing.T) {
	out := roundTrip(t, []*idl.Type{idl.Opt(idl.Text())}, []idl.Value{idl.None()})
	_, present := out[0].Option()
	assert.False(t, present)

	out = roundTrip(t, []*idl.Type{idl.Opt(idl.Text())}, []idl.Value{idl.Some(idl.TextValue(""))})
	inner, present := out[0].Option()
	require.True(t, present)
	s, _ := inner.AsText()
	assert.Equal(t, "", s)
}

func TestEncode_Nat64Overflow(t *testing.T) {
	tooBig := new(big.Int).Lsh(big.NewInt(1), 64)
	_, err := wire.Encode([]*idl.Type{idl.Nat64()}, []idl.Value{idl.NatValue(tooBig)})
	require.ErrorIs(t, err, idl.ErrOverflow)
	var encErr *idl.EncodeError
	assert.ErrorAs(t, err, &encErr)

	m, err := wire.Encode([]*idl.Type{idl.Nat()}, []idl.Value{idl.NatValue(tooBig)})
	require.NoError(t, err)
	assert.Equal(t, 1, m.Len())
}

func TestDecode_UnknownVariantTag(t *testing.T) {
	m := &wire.Message{
		Nodes: []wire.Node{
			{Kind: uint32(idl.KindVariant), Labels: []string{"Pending"}, Children: []uint32{1}},
			{Kind: uint32(idl.KindText), Text: "later"},
		},
		Roots: []uint32{0},
	}
	_, err := wire.Decode([]*idl.Type{resultType}, m)
	require.ErrorIs(t, err, idl.ErrUnknownVariantTag)
	var decErr *idl.DecodeError
	require.ErrorAs(t, err, &decErr)
	assert.Equal(t, "$[0].Pending", decErr.Path)
}

func TestDecode_VariantWithTwoTags(t *testing.T) {
	m := &wire.Message{
		Nodes: []wire.Node{
			{Kind: uint32(idl.KindVariant), Labels: []string{"Ok", "Err"}, Children: []uint32{1, 2}},
			{Kind: uint32(idl.KindNat64), Nat64: 1},
			{Kind: uint32(idl.KindText), Text: "x"},
		},
		Roots: []uint32{0},
	}
	_, err := wire.Decode([]*idl.Type{resultType}, m)
	assert.ErrorIs(t, err, idl.ErrMalformed)
}

func TestDecode_RecordExtraFieldIgnored(t *testing.T) {
	typ := idl.Record(idl.F("a", idl.Text()))
	m := &wire.Message{
		Nodes: []wire.Node{
			{Kind: uint32(idl.KindRecord), Labels: []string{"a", "z"}, Children: []uint32{1, 2}},
			{Kind: uint32(idl.KindText), Text: "kept"},
			{Kind: uint32(idl.KindNat64), Nat64: 9},
		},
		Roots: []uint32{0},
	}
	out, err := wire.Decode([]*idl.Type{typ}, m)
	require.NoError(t, err)
	_, ok := out[0].Field("z")
	assert.False(t, ok)
	a, ok := out[0].Field("a")
	require.True(t, ok)
	s, _ := a.AsText()
	assert.Equal(t, "kept", s)
}

func TestDecode_RecordMissingField(t *testing.T) {
	typ := idl.Record(idl.F("a", idl.Text()), idl.F("b", idl.Opt(idl.Text())))
	m := &wire.Message{
		Nodes: []wire.Node{
			{Kind: uint32(idl.KindRecord), Labels: []string{"a"}, Children: []uint32{1}},
			{Kind: uint32(idl.KindText), Text: "x"},
		},
		Roots: []uint32{0},
	}
	_, err := wire.Decode([]*idl.Type{typ}, m)
	require.ErrorIs(t, err, idl.ErrMissingField, "an absent optional field is still a missing field")
}

func TestDecode_Malformed(t *testing.T) {
	cases := map[string]*wire.Message{
		"arity": {Roots: nil},
		"out of range": {
			Nodes: []wire.Node{{Kind: uint32(idl.KindVec), Children: []uint32{7}}},
			Roots: []uint32{0},
		},
		"backward reference": {
			Nodes: []wire.Node{{Kind: uint32(idl.KindVec), Children: []uint32{0}}},
			Roots: []uint32{0},
		},
		"optional with two elements": {
			Nodes: []wire.Node{
				{Kind: uint32(idl.KindOpt), Children: []uint32{1, 2}},
				{Kind: uint32(idl.KindText)},
				{Kind: uint32(idl.KindText)},
			},
			Roots: []uint32{0},
		},
		"invalid utf8": {
			Nodes: []wire.Node{{Kind: uint32(idl.KindVec), Children: []uint32{1}}, {Kind: uint32(idl.KindText), Text: "\xff"}},
			Roots: []uint32{0},
		},
	}
	for name, m := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := wire.Decode([]*idl.Type{idl.Vec(idl.Text())}, m)
			if name == "optional with two elements" {
				_, err = wire.Decode([]*idl.Type{idl.Opt(idl.Text())}, m)
			}
			assert.ErrorIs(t, err, idl.ErrMalformed)
		})
	}
}

func TestDecode_KindMismatch(t *testing.T) {
	m, err := wire.Encode([]*idl.Type{idl.Nat()}, []idl.Value{idl.NatUint64(5)})
	require.NoError(t, err)
	_, err = wire.Decode([]*idl.Type{idl.Nat64()}, m)
	assert.ErrorIs(t, err, idl.ErrTypeMismatch)
}

func TestEncode_Deterministic(t *testing.T) {
	v := nestedValue(idl.Some(idl.TextValue("r")))
	m1, err := wire.Encode([]*idl.Type{nestedType}, []idl.Value{v})
	require.NoError(t, err)
	m2, err := wire.Encode([]*idl.Type{nestedType}, []idl.Value{v})
	require.NoError(t, err)
	b1, err := wire.Marshal(m1)
	require.NoError(t, err)
	b2, err := wire.Marshal(m2)
	require.NoError(t, err)
	assert.Equal(t, b1, b2)
}
