package models_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/helmholtz/internal/autodiff"
	"github.com/san-kum/helmholtz/internal/dynamo"
	"github.com/san-kum/helmholtz/internal/integrators"
	"github.com/san-kum/helmholtz/internal/models"
)

var _ = Describe("HNN", func() {
	DescribeTable("output shape matches the input",
		func(batch, dim int) {
			rng := newRand(10)
			model := models.NewHNN(dim, 16, rng)
			x := autodiff.Variable(batch, dim, randomPoints(rng, batch, dim))

			field, err := model.Forward(x)
			Expect(err).NotTo(HaveOccurred())
			r, c := field.Dims()
			Expect([]int{r, c}).To(Equal([]int{batch, dim}))
		},
		Entry("single point, 2d", 1, 2),
		Entry("batch, 2d", 16, 2),
		Entry("batch, 8d", 4, 8),
	)

	It("swaps and negates the gradient halves exactly", func() {
		rng := newRand(11)
		model := models.NewHNN(4, 32, rng)
		x := autodiff.Variable(7, 4, randomPoints(rng, 7, 4))

		field, err := model.Forward(x)
		Expect(err).NotTo(HaveOccurred())

		ham, err := model.Hamiltonian(x)
		Expect(err).NotTo(HaveOccurred())
		g := mustGrad(autodiff.Sum(ham), x)

		for i := 0; i < 7; i++ {
			for j := 0; j < 2; j++ {
				Expect(field.At(i, j)).To(Equal(g.At(i, 2+j)))
				Expect(field.At(i, 2+j)).To(Equal(-g.At(i, j)))
			}
		}
	})

	It("keeps the field attached to the graph", func() {
		rng := newRand(12)
		model := models.NewHNN(2, 8, rng)
		x := autodiff.Variable(3, 2, randomPoints(rng, 3, 2))

		field, err := model.Forward(x)
		Expect(err).NotTo(HaveOccurred())
		Expect(field.RequiresGrad()).To(BeTrue())
		_, err = autodiff.Grad(autodiff.Sum(field), []*autodiff.Tensor{x})
		Expect(err).NotTo(HaveOccurred())
	})

	It("rejects an odd phase-space dimension at the split", func() {
		rng := newRand(13)
		model := models.NewHNN(5, 8, rng)
		x := autodiff.Variable(2, 5, randomPoints(rng, 2, 5))

		_, err := model.Forward(x)
		Expect(err).To(MatchError(autodiff.ErrShape))
	})

	It("reports the learned Hamiltonian as energy", func() {
		rng := newRand(14)
		model := models.NewHNN(2, 8, rng)
		state := dynamo.State{0.3, -0.4}

		ham, err := model.Hamiltonian(autodiff.New(1, 2, state))
		Expect(err).NotTo(HaveOccurred())
		Expect(model.Energy(state)).To(Equal(ham.At(0, 0)))
		Expect(math.IsNaN(model.Energy(dynamo.State{1, 2, 3}))).To(BeTrue())
	})

	It("conserves its own Hamiltonian along an integrated trajectory", func() {
		rng := newRand(15)
		model := models.NewHNN(2, 16, rng)
		sys := models.NewFieldSystem(model)
		integ := integrators.NewRK4()

		x := dynamo.State{0.5, 0.2}
		e0 := model.Energy(x)
		dt := 0.01
		for i := 0; i < 200; i++ {
			x = integ.Step(sys, x, float64(i)*dt, dt)
		}
		Expect(sys.Err()).NotTo(HaveOccurred())
		Expect(model.Energy(x)).To(BeNumerically("~", e0, 1e-6))
	})
})

var _ = Describe("FieldSystem", func() {
	It("evaluates the field at a single state", func() {
		rng := newRand(20)
		model := models.NewDecomposer(2, 8, rng)
		sys := models.NewFieldSystem(model)
		Expect(sys.StateDim()).To(Equal(2))

		state := dynamo.State{0.1, -0.2}
		field, err := model.Forward(autodiff.Variable(1, 2, state), nil)
		Expect(err).NotTo(HaveOccurred())
		expectClose(sys.Derive(state, 0), field.Row(0), 0)
		Expect(sys.Err()).NotTo(HaveOccurred())
	})

	It("returns an invalid state and keeps the error on failure", func() {
		rng := newRand(21)
		sys := models.NewFieldSystem(models.NewHNN(3, 8, rng))

		dx := sys.Derive(dynamo.State{1, 2, 3}, 0.5)
		Expect(dx.IsValid()).To(BeFalse())
		Expect(sys.Err()).To(MatchError(autodiff.ErrShape))
	})

	It("clears the error once an evaluation succeeds", func() {
		rng := newRand(22)
		sys := models.NewFieldSystem(models.NewHNN(2, 8, rng))

		Expect(sys.Derive(dynamo.State{1, 2, 3}, 0).IsValid()).To(BeFalse())
		Expect(sys.Err()).To(HaveOccurred())

		Expect(sys.Derive(dynamo.State{1, 2}, 0.1).IsValid()).To(BeTrue())
		Expect(sys.Err()).NotTo(HaveOccurred())
	})

	It("has no parameters when the field has none", func() {
		sys := models.NewFieldSystem(models.NewHNN(2, 8, newRand(23)))
		Expect(sys.GetParams()).To(BeEmpty())
		Expect(sys.SetParam("aux0", 1)).To(MatchError(dynamo.ErrUnknownParam))
	})

	It("forwards the auxiliary input of an AuxField as parameters", func() {
		rng := newRand(24)
		dec := models.NewDecomposer(3, 8, rng)
		sys := models.NewFieldSystem(dec.WithAux([]float64{0}))
		Expect(sys.GetParams()).To(Equal(map[string]float64{"aux0": 0}))

		state := dynamo.State{0.3, -0.4}
		Expect(sys.SetParam("aux0", 1.5)).To(Succeed())
		Expect(sys.GetParams()).To(HaveKeyWithValue("aux0", 1.5))

		want, err := dec.Forward(autodiff.Variable(1, 2, state), autodiff.New(1, 1, []float64{1.5}))
		Expect(err).NotTo(HaveOccurred())
		expectClose(sys.Derive(state, 0), want.Row(0), 1e-12)

		Expect(sys.SetParam("rho", 1)).To(MatchError(dynamo.ErrUnknownParam))
		Expect(sys.SetParam("aux0", math.NaN())).To(MatchError(dynamo.ErrParameterBounds))
		Expect(sys.GetParams()).To(HaveKeyWithValue("aux0", 1.5))
	})
})

var _ = Describe("SymplecticGradient", func() {
	It("maps (a, b) to (b, -a)", func() {
		g := autodiff.New(2, 4, []float64{1, 2, 3, 4, 5, 6, 7, 8})
		out, err := models.SymplecticGradient(g)
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Data()).To(Equal([]float64{3, 4, -1, -2, 7, 8, -5, -6}))
	})

	It("never truncates an odd width", func() {
		_, err := models.SymplecticGradient(autodiff.New(1, 3, []float64{1, 2, 3}))
		Expect(err).To(MatchError(autodiff.ErrShape))
	})
})
