package hardware

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvailableKinds(t *testing.T) {
	kinds := AvailableKinds()

	assert.Len(t, kinds, 5)
	for _, kind := range []string{"mac", "disk", "cpu", "system", "composite"} {
		assert.Contains(t, kinds, kind)
	}
}

func TestGetAllKinds(t *testing.T) {
	fp := New()

	for _, kind := range AvailableKinds() {
		t.Run(kind, func(t *testing.T) {
			digest, err := fp.Get(kind)
			require.NoError(t, err)

			assert.Len(t, digest, 64)
			for _, c := range digest {
				assert.Contains(t, "0123456789abcdef", string(c))
			}
		})
	}
}

func TestGetInvalidKind(t *testing.T) {
	fp := New()

	_, err := fp.Get("bios")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported fingerprint type")
}

func TestGetDeterministic(t *testing.T) {
	fp := New()

	for _, kind := range AvailableKinds() {
		first, err := fp.Get(kind)
		require.NoError(t, err)

		for i := 0; i < 4; i++ {
			again, err := fp.Get(kind)
			require.NoError(t, err)
			assert.Equal(t, first, again, "kind %s must be stable", kind)
		}
	}
}

func TestClearCacheDoesNotChangeResult(t *testing.T) {
	fp := New()

	before, err := fp.Get(KindMAC)
	require.NoError(t, err)

	fp.ClearCache()

	after, err := fp.Get(KindMAC)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestCompositeDiffersFromClasses(t *testing.T) {
	fp := New()

	composite, err := fp.Get(KindComposite)
	require.NoError(t, err)

	for _, kind := range []string{KindMAC, KindDisk, KindCPU, KindSystem} {
		digest, err := fp.Get(kind)
		require.NoError(t, err)
		assert.NotEqual(t, composite, digest,
			"composite must be a hash over raw inputs, not a per-class digest")
	}
}

func TestCollectPopulatesAllClasses(t *testing.T) {
	info := New().Collect()

	assert.NotEmpty(t, info.MACAddresses)
	assert.NotEmpty(t, info.DiskInfo)
	assert.NotEmpty(t, info.CPUInfo)
	assert.NotEmpty(t, info.SystemInfo)

	assert.Equal(t, info.CPUInfo["machine"], info.SystemInfo["system"]+"-"+info.SystemInfo["machine"])
}

func TestFromTargetMirrorsLocal(t *testing.T) {
	fp := New()
	info := fp.Collect()

	for _, kind := range AvailableKinds() {
		t.Run(kind, func(t *testing.T) {
			local, err := fp.Get(kind)
			require.NoError(t, err)

			remote, err := FromTarget(kind, info)
			require.NoError(t, err)

			assert.Equal(t, local, remote,
				"a license issued from collected descriptors must match the local digest")
		})
	}
}

func TestFromTargetInvalidKind(t *testing.T) {
	_, err := FromTarget("serial", TargetInfo{})
	assert.Error(t, err)
}

func TestFromTargetOrderIndependent(t *testing.T) {
	a := TargetInfo{
		MACAddresses: []string{"00:11:22:33:44:55", "aa:bb:cc:dd:ee:ff"},
		DiskInfo:     []string{"sda:SERIAL1", "sdb:SERIAL2"},
	}
	b := TargetInfo{
		MACAddresses: []string{"aa:bb:cc:dd:ee:ff", "00:11:22:33:44:55"},
		DiskInfo:     []string{"sdb:SERIAL2", "sda:SERIAL1"},
	}

	for _, kind := range []string{KindMAC, KindDisk, KindComposite} {
		da, err := FromTarget(kind, a)
		require.NoError(t, err)
		db, err := FromTarget(kind, b)
		require.NoError(t, err)
		assert.Equal(t, da, db, "descriptor order must not change the %s digest", kind)
	}
}

func TestFromTargetDistinguishesMachines(t *testing.T) {
	a := TargetInfo{MACAddresses: []string{"00:11:22:33:44:55"}}
	b := TargetInfo{MACAddresses: []string{"66:77:88:99:aa:bb"}}

	da, err := FromTarget(KindMAC, a)
	require.NoError(t, err)
	db, err := FromTarget(KindMAC, b)
	require.NoError(t, err)

	assert.NotEqual(t, da, db)
}

func TestCanonicalListDropsBlanks(t *testing.T) {
	assert.Equal(t, "a\nb", canonicalList([]string{" b ", "", "a", "  "}))
	assert.Equal(t, "", canonicalList(nil))
}

func TestCanonicalMapSortedKeys(t *testing.T) {
	canonical := canonicalMap(map[string]string{"b": "2", "a": "1", "c": "3"})
	assert.Equal(t, "a=1\nb=2\nc=3", canonical)
	assert.Equal(t, "", canonicalMap(nil))
}

func TestConcurrentGetSafe(t *testing.T) {
	fp := New()

	done := make(chan string, 16)
	for i := 0; i < 16; i++ {
		go func() {
			digest, err := fp.Get(KindComposite)
			assert.NoError(t, err)
			done <- digest
		}()
	}

	first := <-done
	for i := 1; i < 16; i++ {
		assert.Equal(t, first, <-done)
	}
}
