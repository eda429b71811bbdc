package phi

// Brahim sequence and its mirror.
var BrahimNumbers = [10]int{27, 42, 60, 75, 97, 117, 139, 154, 172, 187}

const (
	// MirrorConstant is the sum of every mirror pair, B(i) + B(11-i).
	MirrorConstant = 214
	// Center is the fixed point of Mirror.
	Center = 107
	// BrahimSum is the sum of the sequence.
	BrahimSum = 1070
)

// LucasNumbers holds L(1)..L(12), the state counts of the first twelve levels.
var LucasNumbers = [12]int{1, 3, 4, 7, 11, 18, 29, 47, 76, 123, 199, 322}

// TotalStates is the sum of LucasNumbers.
const TotalStates = 840

// Fib returns the n-th Fibonacci number with F(0) = 0, F(1) = 1.
// Negative n returns 0.
func Fib(n int) int {
	if n <= 0 {
		return 0
	}
	a, b := 0, 1
	for i := 1; i < n; i++ {
		a, b = b, a+b
	}
	return b
}

// Lucas returns the n-th Lucas number with L(0) = 2, L(1) = 1.
// Negative n returns 0.
func Lucas(n int) int {
	if n < 0 {
		return 0
	}
	if n >= 1 && n <= len(LucasNumbers) {
		return LucasNumbers[n-1]
	}
	a, b := 2, 1
	for i := 0; i < n; i++ {
		a, b = b, a+b
	}
	return a
}

// Mirror reflects x through Center: 214 - x. It is an involution.
func Mirror(x int) int {
	return MirrorConstant - x
}
