package common

// AddressTranslator converts between file relative (static) addresses and the
// load biased (runtime) addresses of the traced process
type AddressTranslator struct {
	loadAddress uintptr
	resolved    bool
}

// NewAddressTranslator returns a translator whose load address is not resolved yet
func NewAddressTranslator() *AddressTranslator {
	return &AddressTranslator{}
}

// Resolve sets the load address. It can only be called once.
func (at *AddressTranslator) Resolve(loadAddress uintptr) error {
	if at.resolved {
		return Errorf("load address already resolved to %#x", at.loadAddress)
	}

	at.loadAddress = loadAddress
	at.resolved = true
	return nil
}

// IsResolved returns whether the load address is known
func (at *AddressTranslator) IsResolved() bool {
	return at.resolved
}

// LoadAddress returns the load address
func (at *AddressTranslator) LoadAddress() uintptr {
	at.mustBeResolved()
	return at.loadAddress
}

// ToRuntime converts a static address to a runtime address
func (at *AddressTranslator) ToRuntime(addr uintptr) uintptr {
	at.mustBeResolved()
	return addr + at.loadAddress
}

// ToStatic converts a runtime address to a static address
func (at *AddressTranslator) ToStatic(addr uintptr) uintptr {
	at.mustBeResolved()
	return addr - at.loadAddress
}

func (at *AddressTranslator) mustBeResolved() {
	if !at.resolved {
		panic("address translation requested before the load address was resolved")
	}
}
