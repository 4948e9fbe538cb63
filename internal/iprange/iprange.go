// Package iprange enumerates contiguous IPv4 and IPv6 address ranges.
//
// IPv4 ranges are walked as 32-bit unsigned integers. IPv6 ranges are walked
// as eight big-endian 16-bit segments with carry propagation from the least
// significant segment toward the most significant one. Both walks test for the
// end address before incrementing, so a range ending at the top of the address
// space terminates.
package iprange

import (
	"encoding/binary"
	"math/big"
	"net/netip"

	"go4.org/netipx"

	"github.com/anstrom/rangescan/internal/errors"
)

// Range is an inclusive range of addresses of a single family.
type Range struct {
	r netipx.IPRange
}

// New builds a range from start to end inclusive. IPv4-mapped IPv6 endpoints
// are treated as IPv4 and zones are dropped. Endpoints of different families
// and reversed endpoints are rejected with an INVALID_RANGE error.
func New(start, end netip.Addr) (Range, error) {
	if !start.IsValid() || !end.IsValid() {
		return Range{}, errors.ErrInvalidRange(start.String(), end.String(), "endpoint is not a valid address")
	}
	start = start.Unmap().WithZone("")
	end = end.Unmap().WithZone("")

	if start.Is4() != end.Is4() {
		return Range{}, errors.ErrInvalidRange(start.String(), end.String(), "mixed IPv4 and IPv6 addresses are not supported")
	}

	r := netipx.IPRangeFrom(start, end)
	if !r.IsValid() {
		return Range{}, errors.ErrInvalidRange(start.String(), end.String(), "start address is greater than end address")
	}
	return Range{r: r}, nil
}

// Parse parses both endpoints and calls New.
func Parse(start, end string) (Range, error) {
	s, err := netip.ParseAddr(start)
	if err != nil {
		return Range{}, errors.ErrInvalidRange(start, end, err.Error())
	}
	e, err := netip.ParseAddr(end)
	if err != nil {
		return Range{}, errors.ErrInvalidRange(start, end, err.Error())
	}
	return New(s, e)
}

// Start returns the first address of the range.
func (r Range) Start() netip.Addr { return r.r.From() }

// End returns the last address of the range.
func (r Range) End() netip.Addr { return r.r.To() }

// Is4 reports whether the range holds IPv4 addresses.
func (r Range) Is4() bool { return r.r.From().Is4() }

// Contains reports whether addr lies within the range.
func (r Range) Contains(addr netip.Addr) bool { return r.r.Contains(addr.Unmap()) }

func (r Range) String() string { return r.r.String() }

// Size returns the number of addresses in the range before host filtering.
func (r Range) Size() *big.Int {
	from := r.r.From().As16()
	to := r.r.To().As16()
	n := new(big.Int).Sub(new(big.Int).SetBytes(to[:]), new(big.Int).SetBytes(from[:]))
	return n.Add(n, big.NewInt(1))
}

// Each calls fn for every address of the range in ascending order until fn
// returns false.
func (r Range) Each(fn func(netip.Addr) bool) {
	if !r.r.IsValid() {
		return
	}
	if r.Is4() {
		end := ToUint32(r.r.To())
		for cur := ToUint32(r.r.From()); ; cur++ {
			if !fn(FromUint32(cur)) || cur == end {
				return
			}
		}
	}

	end := Segments(r.r.To())
	cur := Segments(r.r.From())
	for {
		if !fn(FromSegments(cur)) || cur == end {
			return
		}
		cur, _ = Next6(cur)
	}
}

// Addrs returns every address of the range in ascending order.
func (r Range) Addrs() []netip.Addr {
	var out []netip.Addr
	if n := r.Size(); n.IsInt64() && n.Int64() < 1<<20 {
		out = make([]netip.Addr, 0, n.Int64())
	}
	r.Each(func(a netip.Addr) bool {
		out = append(out, a)
		return true
	})
	return out
}

// Hosts returns the addresses of the range that pass IsHost.
func (r Range) Hosts() []netip.Addr {
	var out []netip.Addr
	r.Each(func(a netip.Addr) bool {
		if IsHost(a) {
			out = append(out, a)
		}
		return true
	})
	return out
}

// IsHost reports whether addr should be probed. IPv4 addresses whose last
// octet is 0 or 255 are treated as network and broadcast addresses. IPv6
// addresses are always hosts.
func IsHost(addr netip.Addr) bool {
	if !addr.Is4() {
		return true
	}
	last := addr.As4()[3]
	return last != 0 && last != 255
}

// ToUint32 returns the numeric value of an IPv4 address.
func ToUint32(addr netip.Addr) uint32 {
	b := addr.As4()
	return binary.BigEndian.Uint32(b[:])
}

// FromUint32 converts a numeric value back to an IPv4 address.
func FromUint32(v uint32) netip.Addr {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return netip.AddrFrom4(b)
}

// Segments splits an IPv6 address into its eight 16-bit segments, most
// significant first.
func Segments(addr netip.Addr) [8]uint16 {
	b := addr.As16()
	var seg [8]uint16
	for i := range seg {
		seg[i] = binary.BigEndian.Uint16(b[2*i:])
	}
	return seg
}

// FromSegments joins eight 16-bit segments into an IPv6 address.
func FromSegments(seg [8]uint16) netip.Addr {
	var b [16]byte
	for i, s := range seg {
		binary.BigEndian.PutUint16(b[2*i:], s)
	}
	return netip.AddrFrom16(b)
}

// Next6 returns the successor of seg. Index 7 is incremented first and a
// carry moves toward index 0. The second result is true when the increment
// wrapped past ffff:...:ffff.
func Next6(seg [8]uint16) ([8]uint16, bool) {
	carry := uint32(1)
	for i := len(seg) - 1; i >= 0 && carry > 0; i-- {
		sum := uint32(seg[i]) + carry
		seg[i] = uint16(sum & 0xFFFF)
		carry = sum >> 16
	}
	return seg, carry > 0
}
