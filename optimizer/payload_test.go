package optimizer

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestIDs_SlotOrderAndThreshold(t *testing.T) {
	set := EquipmentSet{
		Name:      Named("Fire Build"),
		Weapon:    []int{606, 10000},
		Head:      []int{202},
		Boots:     []int{303, 10001},
		Armor:     []int{404},
		Pants:     []int{505},
		Accessory: []int{101, 9999, -1},
	}

	got := set.IDs()
	want := []int{101, 9999, -1, 202, 303, 404, 505, 606}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("IDs: got %v, want %v", got, want)
	}
}

func TestIDs_EmptyIsNotNil(t *testing.T) {
	got := EquipmentSet{Name: Named("x"), Weapon: []int{10000}}.IDs()
	if got == nil || len(got) != 0 {
		t.Errorf("IDs: got %#v, want empty non-nil slice", got)
	}
}

func TestBuildPayload(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "threshold is exclusive",
			in:   `[{"name":"A","weapon":[1,10000],"head":[],"boots":[],"armor":[],"pants":[],"accessory":[]}]`,
			want: `[{"A":[1]}]`,
		},
		{
			name: "unnamed record dropped",
			in:   `[{"weapon":[5]}]`,
			want: `[]`,
		},
		{
			name: "null name dropped",
			in:   `[{"name":null,"weapon":[5]},{"name":"B","pants":[7]}]`,
			want: `[{"B":[7]}]`,
		},
		{
			name: "order preserved around unnamed",
			in:   `[{"name":"first","head":[1]},{"head":[2]},{"name":"second","head":[3]}]`,
			want: `[{"first":[1]},{"second":[3]}]`,
		},
		{
			name: "empty name is still a name",
			in:   `[{"name":"","boots":[4]}]`,
			want: `[{"":[4]}]`,
		},
		{
			name: "fire build example",
			in: `[{"name":"Fire Build","accessory":[101],"head":[202],"boots":[303],
				"armor":[404],"pants":[505],"weapon":[606]}]`,
			want: `[{"Fire Build":[101,202,303,404,505,606]}]`,
		},
		{
			name: "no saved sets",
			in:   `[]`,
			want: `[]`,
		},
		{
			name: "null slot items skipped",
			in:   `[{"name":"A","head":[null,5],"weapon":[null]}]`,
			want: `[{"A":[5]}]`,
		},
		{
			name: "null slot",
			in:   `[{"name":"A","head":null,"boots":[3]}]`,
			want: `[{"A":[3]}]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sets []EquipmentSet
			if err := json.Unmarshal([]byte(tt.in), &sets); err != nil {
				t.Fatal(err)
			}
			data, err := json.Marshal(BuildPayload(sets))
			if err != nil {
				t.Fatal(err)
			}
			if string(data) != tt.want {
				t.Errorf("payload: got %s, want %s", data, tt.want)
			}
		})
	}
}

func TestPayload_NilMarshalsAsEmptyArray(t *testing.T) {
	data, err := json.Marshal(Payload(nil))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[]" {
		t.Errorf("got %s, want []", data)
	}
}

func TestDecodePayload(t *testing.T) {
	p, err := DecodePayload([]byte(`[{"A":[1,2]},{"B":[]},{"A":[3]}]`))
	if err != nil {
		t.Fatal(err)
	}
	if got := p.Labels(); !reflect.DeepEqual(got, []string{"A", "B", "A"}) {
		t.Errorf("Labels: got %v", got)
	}

	idx := p.Index()
	if !reflect.DeepEqual(idx["A"], []int{3}) {
		t.Errorf("Index[A]: got %v, want [3] (last entry wins)", idx["A"])
	}
	if idx["B"] == nil || len(idx["B"]) != 0 {
		t.Errorf("Index[B]: got %#v, want empty", idx["B"])
	}
}

func TestDecodePayload_Rejects(t *testing.T) {
	bad := []string{
		``,
		`{"A":[1]}`,
		`[{}]`,
		`[{"A":[1],"B":[2]}]`,
		`[{"A":"nope"}]`,
		`[null]`,
	}
	for _, in := range bad {
		if _, err := DecodePayload([]byte(in)); err == nil {
			t.Errorf("DecodePayload(%q): want error", in)
		}
	}
}
