package common

// WipeByteArray overwrites b with zeros. It is used to drop secrets such as
// the two-step password from memory once they have been sent.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
