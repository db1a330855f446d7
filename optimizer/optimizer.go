// Package optimizer defines the gear optimizer types read from the host page
// and the sync payload built from them. It is the contract shared by the
// trigger (producer) and the receiver (consumer).
package optimizer

import "encoding/json"

// EmptySlotThreshold separates real item identifiers from the optimizer's
// placeholder values. Identifiers at or above it are never synced.
const EmptySlotThreshold = 10000

// Slot names an equipment slot of a saved set.
type Slot string

const (
	SlotAccessory Slot = "accessory"
	SlotHead      Slot = "head"
	SlotBoots     Slot = "boots"
	SlotArmor     Slot = "armor"
	SlotPants     Slot = "pants"
	SlotWeapon    Slot = "weapon"
)

// SlotOrder is the order in which slots are concatenated into a payload entry.
var SlotOrder = []Slot{SlotAccessory, SlotHead, SlotBoots, SlotArmor, SlotPants, SlotWeapon}

// State is the optimizer sub-state of the host application.
type State struct {
	SavedEquip []EquipmentSet `json:"savedequip"`
}

// EquipmentSet is one saved equipment set. Name is nil when the host record
// has no name (absent or null).
type EquipmentSet struct {
	Name      *string `json:"name,omitempty"`
	Accessory []int   `json:"accessory"`
	Head      []int   `json:"head"`
	Boots     []int   `json:"boots"`
	Armor     []int   `json:"armor"`
	Pants     []int   `json:"pants"`
	Weapon    []int   `json:"weapon"`
}

// UnmarshalJSON skips null slot items. They are empty positions, not item 0.
func (e *EquipmentSet) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name      *string `json:"name"`
		Accessory []*int  `json:"accessory"`
		Head      []*int  `json:"head"`
		Boots     []*int  `json:"boots"`
		Armor     []*int  `json:"armor"`
		Pants     []*int  `json:"pants"`
		Weapon    []*int  `json:"weapon"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = EquipmentSet{
		Name:      raw.Name,
		Accessory: items(raw.Accessory),
		Head:      items(raw.Head),
		Boots:     items(raw.Boots),
		Armor:     items(raw.Armor),
		Pants:     items(raw.Pants),
		Weapon:    items(raw.Weapon),
	}
	return nil
}

func items(raw []*int) []int {
	if raw == nil {
		return nil
	}
	ids := make([]int, 0, len(raw))
	for _, id := range raw {
		if id != nil {
			ids = append(ids, *id)
		}
	}
	return ids
}

// Slot returns the identifiers stored in slot s.
func (e EquipmentSet) Slot(s Slot) []int {
	switch s {
	case SlotAccessory:
		return e.Accessory
	case SlotHead:
		return e.Head
	case SlotBoots:
		return e.Boots
	case SlotArmor:
		return e.Armor
	case SlotPants:
		return e.Pants
	case SlotWeapon:
		return e.Weapon
	}
	return nil
}

// IDs concatenates the slots in SlotOrder, keeping identifiers strictly
// below EmptySlotThreshold. The result is never nil.
func (e EquipmentSet) IDs() []int {
	ids := make([]int, 0)
	for _, s := range SlotOrder {
		for _, id := range e.Slot(s) {
			if id < EmptySlotThreshold {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// Named returns a pointer to name, for building sets in code.
func Named(name string) *string {
	return &name
}
