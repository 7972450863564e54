package keyed

import "sort"

// primes is a monotone list of primes used to pick open-addressed table
// capacities. Successive entries grow by roughly a third (a little more at
// the very low end), so NextPrime can land close to any requested size;
// growth on rehash doubles the capacity by asking for NextPrime(capacity*2).
var primes = []int{
	3, 5, 7, 11, 17, 23, 31, 43, 59, 79, 107, 149, 199, 269, 359, 479, 641,
	857, 1_151, 1_549, 2_069, 2_767, 3_691, 4_931, 6_577, 8_779, 11_717,
	15_629, 20_849, 27_803, 37_087, 49_433, 65_921, 87_911, 117_223,
	156_307, 208_387, 277_859, 370_483, 493_967, 658_633, 878_159,
	1_170_899, 1_561_187, 2_081_603, 2_775_469, 3_700_691, 4_934_203,
	6_578_963, 8_771_941, 11_695_927, 15_594_587, 20_792_789, 27_723_727,
	36_964_973, 49_286_641, 65_715_521, 87_620_683, 116_827_583,
	155_770_091, 207_693_509, 277_058_011, 369_410_687, 492_547_631,
	657_396_811, 876_529_063, 1_168_705_427, 1_558_273_903,
}

// NextPrime returns the smallest prime in the table that is >= n. Panics if
// n exceeds the largest prime in the table — a table that needs to grow
// beyond ~1.5 billion slots has exceeded what this list was built for.
func NextPrime(n int) int {
	if n <= primes[0] {
		return primes[0]
	}
	idx := sort.SearchInts(primes, n)
	if idx == len(primes) {
		panic("keyed: requested capacity exceeds prime table range")
	}
	return primes[idx]
}
