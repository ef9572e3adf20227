package models_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/diff/fd"

	"github.com/san-kum/helmholtz/internal/autodiff"
	"github.com/san-kum/helmholtz/internal/models"
	"github.com/san-kum/helmholtz/internal/nn"
)

var _ = Describe("Decomposer", func() {
	DescribeTable("output shape matches the input",
		func(batch, dim int) {
			rng := newRand(1)
			model := models.NewDecomposer(dim, 16, rng)
			x := autodiff.Variable(batch, dim, randomPoints(rng, batch, dim))

			total, err := model.Forward(x, nil)
			Expect(err).NotTo(HaveOccurred())
			r, c := total.Dims()
			Expect([]int{r, c}).To(Equal([]int{batch, dim}))

			irr, rot, err := model.Separate(x, nil)
			Expect(err).NotTo(HaveOccurred())
			for _, part := range []*autodiff.Tensor{irr, rot} {
				r, c := part.Dims()
				Expect([]int{r, c}).To(Equal([]int{batch, dim}))
			}
		},
		Entry("single point, 2d", 1, 2),
		Entry("batch, 2d", 8, 2),
		Entry("batch, 4d", 5, 4),
		Entry("batch, 6d", 3, 6),
	)

	It("sums the separate components to the composite field", func() {
		rng := newRand(2)
		model := models.NewDecomposer(4, 32, rng)
		x := autodiff.Variable(6, 4, randomPoints(rng, 6, 4))

		irr, rot, err := model.Separate(x, nil)
		Expect(err).NotTo(HaveOccurred())
		total, err := model.Forward(x, nil)
		Expect(err).NotTo(HaveOccurred())

		sum, err := autodiff.Add(irr, rot)
		Expect(err).NotTo(HaveOccurred())
		expectClose(sum.Data(), total.Data(), 1e-12)
	})

	It("honors the separate flag in Evaluate", func() {
		rng := newRand(3)
		model := models.NewDecomposer(2, 8, rng)
		x := autodiff.Variable(3, 2, randomPoints(rng, 3, 2))

		parts, err := model.Evaluate(x, nil, true)
		Expect(err).NotTo(HaveOccurred())
		Expect(parts.Irrotational).NotTo(BeNil())
		Expect(parts.Rotational).NotTo(BeNil())
		Expect(parts.Total).To(BeNil())

		whole, err := model.Evaluate(x, nil, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(whole.Total).NotTo(BeNil())
		Expect(whole.Irrotational).To(BeNil())
	})

	It("differentiates the potentials with respect to x", func() {
		rng := newRand(4)
		model := models.NewDecomposer(2, 8, rng)
		points := randomPoints(rng, 3, 2)
		x := autodiff.Variable(3, 2, points)

		dis, con, err := model.Potentials(x, nil)
		Expect(err).NotTo(HaveOccurred())
		irr, rot, err := model.Separate(x, nil)
		Expect(err).NotTo(HaveOccurred())

		gradD := mustGrad(autodiff.Sum(dis), x)
		gradH := mustGrad(autodiff.Sum(con), x)
		expectClose(irr.Data(), gradD.Data(), 1e-12)
		for i := 0; i < 3; i++ {
			Expect(rot.At(i, 0)).To(Equal(gradH.At(i, 1)))
			Expect(rot.At(i, 1)).To(Equal(-gradH.At(i, 0)))
		}

		for i := 0; i < 3; i++ {
			want := fd.Gradient(nil, func(p []float64) float64 {
				d, _, err := model.Potentials(autodiff.New(1, 2, p), nil)
				Expect(err).NotTo(HaveOccurred())
				return d.At(0, 0)
			}, points[2*i:2*i+2], &fd.Settings{Formula: fd.Central, Step: 1e-5})
			expectClose(irr.Row(i), want, 1e-7)
		}
	})

	Describe("auxiliary field", func() {
		const (
			dim    = 2
			aux    = 3
			hidden = 8
			batch  = 4
		)

		var (
			withAux *models.Decomposer
			plain   *models.Decomposer
			x       *autodiff.Tensor
		)

		BeforeEach(func() {
			rng := newRand(5)
			withAux = models.NewDecomposer(dim+aux, hidden, rng)
			plain = models.NewDecomposer(dim, hidden, rng)

			for _, pair := range [][2]*nn.Approximator{
				{withAux.Dissipative, plain.Dissipative},
				{withAux.Conservative, plain.Conservative},
			} {
				src := pair[0].Parameters()
				w1 := src[0].Dense().Slice(0, dim, 0, hidden)
				err := pair[1].SetParameters([]*autodiff.Tensor{
					autodiff.FromDense(w1), src[1].Detach(), src[2].Detach(), src[3].Detach(),
				})
				Expect(err).NotTo(HaveOccurred())
			}

			x = autodiff.Variable(batch, dim, randomPoints(rng, batch, dim))
		})

		It("matches a model sized without the auxiliary field when rho is zero", func() {
			got, err := withAux.Forward(x, autodiff.Zeros(batch, aux))
			Expect(err).NotTo(HaveOccurred())
			want, err := plain.Forward(x, nil)
			Expect(err).NotTo(HaveOccurred())
			expectClose(got.Data(), want.Data(), 1e-12)
		})

		It("returns gradients shaped like x, not like the concatenated input", func() {
			irr, rot, err := withAux.Separate(x, autodiff.Ones(batch, aux))
			Expect(err).NotTo(HaveOccurred())
			for _, part := range []*autodiff.Tensor{irr, rot} {
				r, c := part.Dims()
				Expect([]int{r, c}).To(Equal([]int{batch, dim}))
			}
		})

		It("uses rho only when it is provided", func() {
			_, err := withAux.Forward(x, nil)
			Expect(err).To(MatchError(autodiff.ErrShape))
		})

		It("fixes rho for every sample with WithAux", func() {
			field := withAux.WithAux([]float64{1, 1, 1})
			Expect(field.StateDim()).To(Equal(dim))

			got, err := field.VectorField(x)
			Expect(err).NotTo(HaveOccurred())
			want, err := withAux.Forward(x, autodiff.Ones(batch, aux))
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Data()).To(Equal(want.Data()))

			sys := models.NewFieldSystem(field)
			dx := sys.Derive(x.Row(0), 0)
			Expect(sys.Err()).NotTo(HaveOccurred())
			expectClose(dx, want.Row(0), 1e-12)
		})

		It("rejects rho with a different batch size", func() {
			_, err := withAux.Forward(x, autodiff.Zeros(batch+1, aux))
			Expect(err).To(MatchError(autodiff.ErrShape))
		})
	})

	It("returns components that can be differentiated again", func() {
		rng := newRand(6)
		model := models.NewDecomposer(4, 16, rng)
		x := autodiff.Variable(5, 4, randomPoints(rng, 5, 4))

		irr, rot, err := model.Separate(x, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(irr.RequiresGrad()).To(BeTrue())
		Expect(rot.RequiresGrad()).To(BeTrue())

		sum, err := autodiff.Add(irr, rot)
		Expect(err).NotTo(HaveOccurred())
		_, err = autodiff.Grad(autodiff.Sum(sum), []*autodiff.Tensor{x})
		Expect(err).NotTo(HaveOccurred())

		_, err = autodiff.Grad(autodiff.Sum(autodiff.Square(sum)), model.Parameters())
		Expect(err).To(MatchError(autodiff.ErrUnused))

		grads, err := autodiff.Grad(autodiff.Sum(autodiff.Square(sum)), model.Parameters(), autodiff.WithAllowUnused())
		Expect(err).NotTo(HaveOccurred())
		Expect(grads).To(HaveLen(8))
		// Output biases shift the potentials without changing their gradients.
		Expect(grads[3].Data()).To(Equal([]float64{0}))
		Expect(grads[7].Data()).To(Equal([]float64{0}))
	})

	It("rejects an odd phase-space dimension at the split", func() {
		rng := newRand(7)
		model := models.NewDecomposer(3, 8, rng)
		x := autodiff.Variable(2, 3, randomPoints(rng, 2, 3))

		_, err := model.Forward(x, nil)
		Expect(err).To(MatchError(autodiff.ErrShape))
		_, _, err = model.Separate(x, nil)
		Expect(err).To(MatchError(autodiff.ErrShape))
	})

	It("requires an input that tracks gradients", func() {
		rng := newRand(8)
		model := models.NewDecomposer(2, 8, rng)
		x := autodiff.New(2, 2, randomPoints(rng, 2, 2))

		_, err := model.Forward(x, nil)
		Expect(err).To(MatchError(autodiff.ErrNoGrad))
	})
})
