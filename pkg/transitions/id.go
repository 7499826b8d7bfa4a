package transitions

import (
	"fmt"

	"github.com/go-drift/mountref/pkg/errors"
)

// KeyType is how a user-supplied transition key is scoped.
type KeyType int

const (
	KeyTypeUnset KeyType = iota
	KeyTypeGlobal
	KeyTypeLocal
)

// IDType is the scope of a resolved transition ID.
type IDType int

const (
	IDTypeGlobal IDType = iota
	IDTypeScoped
	IDTypeAutogenerated
)

func (t IDType) String() string {
	switch t {
	case IDTypeGlobal:
		return "global"
	case IDTypeScoped:
		return "scoped"
	default:
		return "autogenerated"
	}
}

// ID identifies the item a transition unit animates.
type ID struct {
	Type      IDType
	Reference string
	ExtraData string
}

func (id ID) String() string {
	if id.ExtraData != "" {
		return fmt.Sprintf("%s:%s@%s", id.Type, id.Reference, id.ExtraData)
	}
	return fmt.Sprintf("%s:%s", id.Type, id.Reference)
}

// CreateTransitionID resolves the ID for an item. An explicit key wins and
// is scoped by keyType; otherwise the global key is used as an
// autogenerated reference. ok is false when neither key is set.
func CreateTransitionID(key string, keyType KeyType, ownerKey, globalKey string) (id ID, ok bool, err error) {
	if key != "" {
		switch keyType {
		case KeyTypeGlobal:
			return ID{Type: IDTypeGlobal, Reference: key}, true, nil
		case KeyTypeLocal:
			return ID{Type: IDTypeScoped, Reference: key, ExtraData: ownerKey}, true, nil
		default:
			return ID{}, false, &errors.MountError{
				Op:   "transitions.CreateTransitionID",
				Kind: errors.KindUnhandledVariant,
				Err:  fmt.Errorf("unhandled transition key type %d", keyType),
			}
		}
	}
	if globalKey == "" {
		return ID{}, false, nil
	}
	return ID{Type: IDTypeAutogenerated, Reference: globalKey}, true, nil
}
