package climate_test

import (
	"math"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/aftermath/internal/climate"
	"github.com/san-kum/aftermath/internal/scenario"
)

var _ = Describe("ApplyEvent", func() {
	var asteroid, volcano scenario.Constants

	BeforeEach(func() {
		asteroid = scenario.MustDefaults(scenario.AsteroidImpact)
		volcano = scenario.MustDefaults(scenario.SupervolcanoEruption)
	})

	It("cools, adds carbonate CO2 and kills for a continental impact", func() {
		cond := impactConditions(12, scenario.Continental)
		s := climate.NewBaseline(&asteroid, 0, cond)
		before := s.Clone()

		climate.ApplyEvent(s, &asteroid, cond)

		Expect(s.Time).To(Equal(before.Time))
		Expect(s.TempAnomalyC).To(BeNumerically("<", 0))
		Expect(s.CO2ppm).To(BeNumerically(">", before.CO2ppm))
		Expect(s.Biodiversity).To(BeNumerically("<", before.Biodiversity))
		Expect(s.Magnetosphere).To(BeNumerically(">=", asteroid.Magnetosphere.Floor))
		Expect(s.Magnetosphere).To(BeNumerically("<", 1))
		Expect(s.SeismicIntensity).To(Equal(1.0))
		Expect(s.Pulse.State).To(Equal(climate.PulsePending))
		Expect(s.Pulse.TriggerYear).To(BeNumerically("~", asteroid.Pulse.DelayYears, 1e-12))
		Expect(s.Pulse.IncrementC).To(BeNumerically(">", 0))
		expectBounds(s)
	})

	It("adds no CO2 for an oceanic impact", func() {
		cond := impactConditions(12, scenario.Oceanic)
		s := climate.NewBaseline(&asteroid, 0, cond)

		climate.ApplyEvent(s, &asteroid, cond)

		Expect(s.CO2ppm).To(Equal(asteroid.Baseline.CO2ppm))
		Expect(s.TempAnomalyC).To(BeNumerically("<", 0))
	})

	It("degasses CO2 and draws methane from the thaw pool for an eruption", func() {
		cond := eruptionConditions(1000)
		s := climate.NewBaseline(&volcano, 0, cond)

		climate.ApplyEvent(s, &volcano, cond)

		Expect(s.CO2ppm).To(BeNumerically("~", 280+0.05*1000/2.12, 1e-9))
		Expect(s.CH4ppb).To(BeNumerically(">", volcano.Baseline.CH4ppb))
		Expect(s.ThawPoolGtC).To(BeNumerically("~", 500-0.1, 1e-9))
		Expect(s.OceanDIC).To(BeNumerically(">", volcano.Baseline.DIC))
		Expect(s.OceanALK).To(BeNumerically("<", volcano.Baseline.ALK))
		expectBounds(s)
	})

	It("leaves particulate mass untouched", func() {
		cond := impactConditions(5, scenario.Continental)
		s := climate.NewBaseline(&asteroid, 0, cond)

		climate.ApplyEvent(s, &asteroid, cond)

		Expect(s.FineKg).To(Equal(cond.FineKg))
		Expect(s.CoarseKg).To(Equal(cond.CoarseKg))
	})
})

var _ = Describe("Step", func() {
	var (
		c    scenario.Constants
		cond climate.Conditions
		s    *climate.State
	)

	BeforeEach(func() {
		c = scenario.MustDefaults(scenario.AsteroidImpact)
		cond = impactConditions(12, scenario.Continental)
		s = climate.NewBaseline(&c, 0, cond)
		climate.ApplyEvent(s, &c, cond)
	})

	DescribeTable("rejects a non-positive step without touching the state",
		func(dt float64) {
			before := *s
			_, err := climate.Step(s, &c, dt, fixedRand(0.5))
			Expect(err).To(MatchError(climate.ErrNonPositiveStep))
			Expect(*s).To(Equal(before))
		},
		Entry("zero", 0.0),
		Entry("negative", -0.5),
		Entry("NaN", math.NaN()),
		Entry("infinite", math.Inf(1)),
	)

	It("fires the pulse exactly once, on the first step reaching the trigger", func() {
		fired := 0
		for i := 0; i < 200; i++ {
			prev := s.Time
			ev, err := climate.Step(s, &c, 0.01, fixedRand(0.99))
			Expect(err).NotTo(HaveOccurred())
			if ev.Has(climate.PulseFired) {
				fired++
				Expect(s.Time).To(BeNumerically(">=", s.Pulse.TriggerYear))
				Expect(prev).To(BeNumerically("<", s.Pulse.TriggerYear))
			}
		}
		Expect(fired).To(Equal(1))
		Expect(s.Pulse.State).To(Equal(climate.PulseConsumed))
	})

	It("fires the pulse when one coarse step jumps past the trigger", func() {
		ev, err := climate.Step(s, &c, 10, fixedRand(0.99))
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Has(climate.PulseFired)).To(BeTrue())

		ev, err = climate.Step(s, &c, 10, fixedRand(0.99))
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Has(climate.PulseFired)).To(BeFalse())
	})

	It("keeps every bound under growing steps and constant aftershocks", func() {
		v := scenario.MustDefaults(scenario.SupervolcanoEruption)
		ec := eruptionConditions(5000)
		vs := climate.NewBaseline(&v, 0, ec)
		climate.ApplyEvent(vs, &v, ec)

		dt, habitat := 0.01, vs.SubsurfaceHabitat
		for vs.Time <= 20000 {
			ev, err := climate.Step(vs, &v, dt, fixedRand(0))
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Has(climate.Aftershock)).To(BeTrue())
			expectBounds(vs)
			Expect(vs.SubsurfaceHabitat).To(BeNumerically("<=", habitat))
			habitat = vs.SubsurfaceHabitat
			dt = math.Min(dt*1.3, 50)
		}
	})

	It("replays identically for the same seed", func() {
		run := func() *climate.State {
			st := climate.NewBaseline(&c, 0, cond)
			climate.ApplyEvent(st, &c, cond)
			rng := rand.New(rand.NewSource(7))
			dt := 0.01
			for i := 0; i < 500; i++ {
				_, err := climate.Step(st, &c, dt, rng)
				Expect(err).NotTo(HaveOccurred())
				dt = math.Min(dt*1.05, 5)
			}
			return st
		}
		Expect(*run()).To(Equal(*run()))
	})

	It("decays particulate and weakens dust cooling monotonically", func() {
		c.Pulse.TempPerKg = 0
		small := impactConditions(1, scenario.Continental)
		st := climate.NewBaseline(&c, 0, small)
		climate.ApplyEvent(st, &c, small)

		prevFine := st.FineKg
		prevCooling := climate.DustCooling(c.Aerosol, st.OpticalDepth(&c))
		for i := 0; i < 300; i++ {
			_, err := climate.Step(st, &c, 0.05, fixedRand(0.99))
			Expect(err).NotTo(HaveOccurred())
			Expect(st.FineKg).To(BeNumerically("<", prevFine))
			cooling := climate.DustCooling(c.Aerosol, st.OpticalDepth(&c))
			Expect(cooling).To(BeNumerically(">=", prevCooling))
			prevFine, prevCooling = st.FineKg, cooling
		}
	})

	It("snaps biodiversity down but recovers it gradually", func() {
		calm := climate.NewBaseline(&c, 0, climate.Conditions{})
		calm.Biodiversity = 0.2

		_, err := climate.Step(calm, &c, 1, fixedRand(0.99))
		Expect(err).NotTo(HaveOccurred())
		surv := climate.Survival(&c, calm.TempAnomalyC, calm.OceanPH, 0)
		Expect(calm.Biodiversity).To(BeNumerically(">", 0.2))
		Expect(calm.Biodiversity).To(BeNumerically("<", surv))

		calm.Biodiversity = 1
		calm.TempAnomalyC = 40
		_, err = climate.Step(calm, &c, 0.001, fixedRand(0.99))
		Expect(err).NotTo(HaveOccurred())
		Expect(calm.Biodiversity).To(BeNumerically("<", 0.1))
	})

	It("recovers the magnetosphere toward full strength", func() {
		m := s.Magnetosphere
		for i := 0; i < 50; i++ {
			_, err := climate.Step(s, &c, 5, fixedRand(0.99))
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Magnetosphere).To(BeNumerically(">=", m))
			Expect(s.Magnetosphere).To(BeNumerically("<=", 1))
			m = s.Magnetosphere
		}
	})

	It("surfaces a corrupted state as ErrNonFinite", func() {
		s.OceanALK = math.Inf(1)
		s.TempAnomalyC = math.NaN()
		_, err := climate.Step(s, &c, 0.1, fixedRand(0.99))
		Expect(err).To(MatchError(climate.ErrNonFinite))
	})
})
