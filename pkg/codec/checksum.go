package codec

// Fletcher32 computes the Fletcher-32 checksum over data, treating it as a
// sequence of 16-bit little-endian words. An odd trailing byte is padded
// with zero. This is the same checksum HDF5 uses for its fletcher32 filter.
func Fletcher32(data []byte) uint32 {
	var sum1, sum2 uint32

	length := len(data)
	i := 0
	for ; i+1 < length; i += 2 {
		word := uint32(data[i]) | uint32(data[i+1])<<8
		sum1 = (sum1 + word) % 65535
		sum2 = (sum2 + sum1) % 65535
	}

	if i < length {
		word := uint32(data[i])
		sum1 = (sum1 + word) % 65535
		sum2 = (sum2 + sum1) % 65535
	}

	return (sum2 << 16) | sum1
}
