package validate_test

import (
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/dustdyn/internal/dynamo"
	"github.com/san-kum/dustdyn/internal/validate"
)

func earthState() dynamo.State {
	return dynamo.NewUniformState(dynamo.Grid{NX: 3, NY: 2, NZ: 2}, dynamo.Vec3{1, 0, 0}, 101325, 0.001, 288, 0.5)
}

func validationField(err error) string {
	var vErr *dynamo.ValidationError
	Expect(errors.As(err, &vErr)).To(BeTrue(), "expected a ValidationError, got %v", err)
	return vErr.Field
}

var _ = Describe("State", func() {
	It("accepts a physical state", func() {
		Expect(validate.State(earthState())).To(Succeed())
		Expect(validate.State(dynamo.NewPointState(dynamo.Vec3{}, 600, 0, 210, 0))).To(Succeed())
		Expect(validate.All(earthState().WithCoMovingDust())).To(Succeed())
	})

	DescribeTable("rejects exactly one offending field",
		func(mutate func(*dynamo.State), field string) {
			s := earthState()
			mutate(&s)
			err := validate.State(s)
			Expect(err).To(MatchError(dynamo.ErrValidation))
			Expect(validationField(err)).To(Equal(field))

			joined := validate.All(s)
			Expect(joined).To(HaveOccurred())
			Expect(joined.(interface{ Unwrap() []error }).Unwrap()).To(HaveLen(1))
		},
		Entry("zero pressure", func(s *dynamo.State) { s.Pressure[0] = 0 }, "pressure"),
		Entry("negative temperature", func(s *dynamo.State) { s.Temperature[4] = -1 }, "temperature"),
		Entry("humidity above one", func(s *dynamo.State) { s.Humidity[2] = 1.5 }, "humidity"),
		Entry("negative concentration", func(s *dynamo.State) { s.Concentration[7] = -0.01 }, "concentration"),
		Entry("NaN humidity", func(s *dynamo.State) { s.Humidity[1] = math.NaN() }, "humidity"),
		Entry("missing temperature", func(s *dynamo.State) { s.Temperature = nil }, "temperature"),
		Entry("short pressure", func(s *dynamo.State) { s.Pressure = s.Pressure[:3] }, "pressure"),
		Entry("infinite velocity", func(s *dynamo.State) { s.Velocity[2][5] = math.Inf(1) }, "velocity"),
		Entry("partial dust velocity", func(s *dynamo.State) { s.DustVelocity[0] = dynamo.Uniform(12, 1) }, "dust_velocity"),
	)

	It("names the offending cell", func() {
		s := earthState()
		s.Concentration[9] = -1
		var vErr *dynamo.ValidationError
		Expect(errors.As(validate.State(s), &vErr)).To(BeTrue())
		Expect(vErr.Index).To(Equal(9))
	})

	It("reports structural problems before value ranges", func() {
		s := earthState()
		s.Pressure[0] = -5
		s.Humidity = nil
		Expect(validationField(validate.State(s))).To(Equal("humidity"))
	})

	It("collects every violated field", func() {
		s := earthState()
		s.Pressure[0] = 0
		s.Temperature[0] = -1
		s.Humidity[0] = 1.5
		s.Concentration[0] = -0.01

		err := validate.All(s)
		var fields []string
		for _, e := range err.(interface{ Unwrap() []error }).Unwrap() {
			fields = append(fields, validationField(e))
		}
		Expect(fields).To(Equal([]string{"pressure", "temperature", "humidity", "concentration"}))
		Expect(validationField(validate.State(s))).To(Equal("pressure"))
	})

	It("rejects an invalid grid", func() {
		s := earthState()
		s.Grid.NZ = 0
		Expect(validationField(validate.State(s))).To(Equal("grid"))
	})
})

var _ = Describe("Results", func() {
	var (
		s       dynamo.State
		initial float64
	)

	BeforeEach(func() {
		s = earthState()
		initial = s.TotalConcentration()
	})

	It("accepts a conserved, finite state", func() {
		Expect(validate.Results(s, initial, validate.DefaultTolerance)).To(Succeed())
	})

	It("accepts drift within tolerance", func() {
		s.Concentration[0] += 0.5e-3 * initial
		Expect(validate.Results(s, initial, validate.DefaultTolerance)).To(Succeed())
	})

	It("raises ConservationError beyond tolerance", func() {
		s.Concentration[0] += 2e-3 * initial
		err := validate.Results(s, initial, validate.DefaultTolerance)
		Expect(err).To(MatchError(dynamo.ErrConservation))

		var cErr *dynamo.ConservationError
		Expect(errors.As(err, &cErr)).To(BeTrue())
		Expect(cErr.Relative).To(BeNumerically("~", 2e-3, 1e-9))
		Expect(cErr.Tolerance).To(Equal(validate.DefaultTolerance))
	})

	It("raises NumericalError on a NaN velocity component", func() {
		s.Velocity[1][3] = math.NaN()
		err := validate.Results(s, initial, validate.DefaultTolerance)
		Expect(err).To(MatchError(dynamo.ErrNumerical))

		var nErr *dynamo.NumericalError
		Expect(errors.As(err, &nErr)).To(BeTrue())
		Expect(nErr.Field).To(Equal("velocity"))
		Expect(nErr.Component).To(Equal(1))
		Expect(nErr.Index).To(Equal(3))
	})

	It("checks finiteness before conservation", func() {
		s.Concentration[0] = math.Inf(1)
		Expect(validate.Results(s, initial, validate.DefaultTolerance)).To(MatchError(dynamo.ErrNumerical))
	})

	It("compares absolute mass when the initial total is zero", func() {
		s.Concentration = dynamo.Uniform(s.Grid.Len(), 0)
		Expect(validate.Results(s, 0, validate.DefaultTolerance)).To(Succeed())

		s.Concentration[0] = 0.01
		Expect(validate.Results(s, 0, validate.DefaultTolerance)).To(MatchError(dynamo.ErrConservation))
	})

	It("rejects a non-positive tolerance and a negative initial total", func() {
		Expect(validate.Results(s, initial, 0)).To(MatchError(dynamo.ErrConfiguration))
		Expect(validate.Results(s, -1, validate.DefaultTolerance)).To(MatchError(dynamo.ErrConfiguration))
	})
})
