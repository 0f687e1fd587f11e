package mathhelp

func Pow2(n uint) uint {
	return 1 << n
}

func Bool2int(b bool) int {
	if b {
		return 1
	}
	return 0
}

func Clip(f, p, q float64) float64 {
	if f < p {
		return p
	}
	if f > q {
		return q
	}
	return f
}
