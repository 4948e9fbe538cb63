package iprange

import (
	"math/big"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anstrom/rangescan/internal/errors"
)

func mustRange(t *testing.T, start, end string) Range {
	t.Helper()
	r, err := Parse(start, end)
	require.NoError(t, err)
	return r
}

func TestNew_InvalidRanges(t *testing.T) {
	tests := []struct {
		name  string
		start string
		end   string
	}{
		{"mixed v4 then v6", "10.0.0.1", "2001:db8::1"},
		{"mixed v6 then v4", "::1", "10.0.0.1"},
		{"reversed v4", "10.0.0.9", "10.0.0.1"},
		{"reversed v6", "2001:db8::9", "2001:db8::1"},
		{"unparsable", "10.0.0.300", "10.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Parse(tt.start, tt.end)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.CodeInvalidRange), "got %v", err)
			assert.True(t, errors.IsConfigError(err))
			assert.Empty(t, r.Addrs(), "an invalid range must not produce addresses")
		})
	}

	t.Run("zero addresses", func(t *testing.T) {
		_, err := New(netip.Addr{}, netip.MustParseAddr("10.0.0.1"))
		assert.True(t, errors.IsCode(err, errors.CodeInvalidRange))
	})
}

func TestRange_IPv4Enumeration(t *testing.T) {
	tests := []struct {
		start string
		end   string
	}{
		{"10.0.0.1", "10.0.0.1"},
		{"192.168.1.0", "192.168.1.255"},
		{"10.0.0.250", "10.0.1.5"},
		{"0.0.0.0", "0.0.0.3"},
		{"172.16.255.0", "172.17.0.255"},
	}

	for _, tt := range tests {
		t.Run(tt.start+"-"+tt.end, func(t *testing.T) {
			r := mustRange(t, tt.start, tt.end)
			addrs := r.Addrs()

			want := ToUint32(netip.MustParseAddr(tt.end)) - ToUint32(netip.MustParseAddr(tt.start)) + 1
			require.Len(t, addrs, int(want))
			assert.Equal(t, int64(want), r.Size().Int64())
			assert.Equal(t, tt.start, addrs[0].String())
			assert.Equal(t, tt.end, addrs[len(addrs)-1].String())

			for i := 1; i < len(addrs); i++ {
				assert.Equal(t, ToUint32(addrs[i-1])+1, ToUint32(addrs[i]), "addresses must be strictly increasing by one")
			}
		})
	}
}

func TestRange_IPv4TopOfAddressSpace(t *testing.T) {
	r := mustRange(t, "255.255.255.250", "255.255.255.255")

	addrs := r.Addrs()
	require.Len(t, addrs, 6)
	assert.Equal(t, "255.255.255.255", addrs[5].String())

	hosts := r.Hosts()
	require.Len(t, hosts, 5)
	assert.Equal(t, "255.255.255.254", hosts[4].String())
}

func TestRange_HostFilter(t *testing.T) {
	r := mustRange(t, "10.0.0.0", "10.0.2.255")

	addrs := r.Addrs()
	hosts := r.Hosts()

	var removed []netip.Addr
	kept := make(map[netip.Addr]bool, len(hosts))
	for _, h := range hosts {
		kept[h] = true
	}
	for _, a := range addrs {
		if !kept[a] {
			removed = append(removed, a)
		}
	}

	require.Len(t, removed, 6)
	for _, a := range removed {
		last := a.As4()[3]
		assert.True(t, last == 0 || last == 255, "removed %s", a)
	}
	for _, h := range hosts {
		last := h.As4()[3]
		assert.True(t, last != 0 && last != 255, "kept %s", h)
	}
	assert.Len(t, hosts, len(addrs)-6)
}

func TestIsHost(t *testing.T) {
	assert.False(t, IsHost(netip.MustParseAddr("10.0.0.0")))
	assert.False(t, IsHost(netip.MustParseAddr("10.0.0.255")))
	assert.True(t, IsHost(netip.MustParseAddr("10.0.0.1")))
	assert.True(t, IsHost(netip.MustParseAddr("10.0.255.1")))
	assert.True(t, IsHost(netip.MustParseAddr("2001:db8::")))
	assert.True(t, IsHost(netip.MustParseAddr("2001:db8::ff")))
}

func TestNext6(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wrapped bool
	}{
		{"simple", "2001:db8::1", "2001:db8::2", false},
		{"carry into segment 6", "2001:db8::ffff", "2001:db8::1:0", false},
		{"double carry", "2001:db8::ffff:ffff", "2001:db8::1:0:0", false},
		{"carry into segment 0", "0:ffff:ffff:ffff:ffff:ffff:ffff:ffff", "1::", false},
		{"wrap", "ffff:ffff:ffff:ffff:ffff:ffff:ffff:ffff", "::", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, wrapped := Next6(Segments(netip.MustParseAddr(tt.in)))
			assert.Equal(t, tt.want, FromSegments(got).String())
			assert.Equal(t, tt.wrapped, wrapped)
		})
	}
}

func TestRange_IPv6StepCount(t *testing.T) {
	tests := []struct {
		start string
		end   string
	}{
		{"2001:db8::1", "2001:db8::1"},
		{"2001:db8::ff:fff0", "2001:db8::100:10"},
		{"2001:db8::fffe", "2001:db8::1:3"},
		{"fe80::ffff:fffc", "fe80::1:0:2"},
		{"ffff:ffff:ffff:ffff:ffff:ffff:ffff:fff0", "ffff:ffff:ffff:ffff:ffff:ffff:ffff:ffff"},
	}

	for _, tt := range tests {
		t.Run(tt.start+"-"+tt.end, func(t *testing.T) {
			s := netip.MustParseAddr(tt.start)
			e := netip.MustParseAddr(tt.end)
			sb, eb := s.As16(), e.As16()
			diff := new(big.Int).Sub(new(big.Int).SetBytes(eb[:]), new(big.Int).SetBytes(sb[:]))

			steps := int64(0)
			cur := Segments(s)
			for FromSegments(cur) != e {
				cur, _ = Next6(cur)
				steps++
				require.LessOrEqual(t, steps, diff.Int64(), "increment overshot the end address")
			}
			assert.Equal(t, diff.Int64(), steps)

			r := mustRange(t, tt.start, tt.end)
			addrs := r.Addrs()
			require.Len(t, addrs, int(diff.Int64())+1)
			assert.Equal(t, diff.Int64()+1, r.Size().Int64())

			seen := make(map[netip.Addr]bool, len(addrs))
			for i, a := range addrs {
				assert.False(t, seen[a], "duplicate %s", a)
				seen[a] = true
				if i > 0 {
					assert.Equal(t, -1, addrs[i-1].Compare(a), "order broken at %s", a)
				}
			}
			assert.Equal(t, addrs, r.Hosts(), "IPv6 addresses are never filtered")
		})
	}
}

func TestRange_Size(t *testing.T) {
	r := mustRange(t, "::", "ffff:ffff:ffff:ffff:ffff:ffff:ffff:ffff")
	want := new(big.Int).Lsh(big.NewInt(1), 128)
	assert.Equal(t, 0, want.Cmp(r.Size()))

	r = mustRange(t, "0.0.0.0", "255.255.255.255")
	assert.Equal(t, int64(1)<<32, r.Size().Int64())
}

func TestRange_EachStopsEarly(t *testing.T) {
	r := mustRange(t, "::", "ffff:ffff:ffff:ffff:ffff:ffff:ffff:ffff")

	var got []string
	r.Each(func(a netip.Addr) bool {
		got = append(got, a.String())
		return len(got) < 3
	})
	assert.Equal(t, []string{"::", "::1", "::2"}, got)
}

func TestRange_MappedAndZoned(t *testing.T) {
	r := mustRange(t, "::ffff:10.0.0.1", "10.0.0.3")
	assert.True(t, r.Is4())
	assert.Len(t, r.Addrs(), 3)
	assert.True(t, r.Contains(netip.MustParseAddr("10.0.0.2")))
	assert.True(t, r.Contains(netip.MustParseAddr("::ffff:10.0.0.2")))
	assert.False(t, r.Contains(netip.MustParseAddr("10.0.0.4")))

	z := mustRange(t, "fe80::1%eth0", "fe80::2")
	assert.Equal(t, "fe80::1", z.Start().String())
	assert.Equal(t, "fe80::1-fe80::2", z.String())
}
