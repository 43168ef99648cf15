package cache_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"finsurvey/internal/cache"
)

// storeBehaviour runs the contract every backend shares. advance moves the
// backend's notion of time forward so TTLs can lapse.
func storeBehaviour(newStore func() cache.Store, advance func(time.Duration)) {
	Context("store contract", func() {
		var (
			ctx   context.Context
			store cache.Store
			now   time.Time
		)

		BeforeEach(func() {
			ctx = context.Background()
			now = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
			store = newStore()
		})

		Describe("values", func() {
			It("returns a stored value until it expires", func() {
				Expect(store.Set(ctx, "otp:a@x.com", "123456", time.Minute)).To(Succeed())

				v, err := store.Get(ctx, "otp:a@x.com")
				Expect(err).NotTo(HaveOccurred())
				Expect(v).To(Equal("123456"))

				advance(time.Minute + time.Second)
				_, err = store.Get(ctx, "otp:a@x.com")
				Expect(err).To(MatchError(cache.ErrNotFound))
			})

			It("reports a missing key", func() {
				_, err := store.Get(ctx, "missing")
				Expect(err).To(MatchError(cache.ErrNotFound))
			})

			It("overwrites the previous value", func() {
				Expect(store.Set(ctx, "k", "first", time.Minute)).To(Succeed())
				Expect(store.Set(ctx, "k", "second", time.Minute)).To(Succeed())

				v, err := store.Get(ctx, "k")
				Expect(err).NotTo(HaveOccurred())
				Expect(v).To(Equal("second"))
			})

			It("deletes a value", func() {
				Expect(store.Set(ctx, "k", "v", time.Minute)).To(Succeed())
				Expect(store.Delete(ctx, "k")).To(Succeed())
				_, err := store.Get(ctx, "k")
				Expect(err).To(MatchError(cache.ErrNotFound))
				Expect(store.Delete(ctx, "k")).To(Succeed())
			})

			It("takes a value only once", func() {
				Expect(store.Set(ctx, "k", "v", 0)).To(Succeed())

				v, err := cache.Take(ctx, store, "k")
				Expect(err).NotTo(HaveOccurred())
				Expect(v).To(Equal("v"))

				_, err = cache.Take(ctx, store, "k")
				Expect(err).To(MatchError(cache.ErrNotFound))
			})
		})

		Describe("Hit", func() {
			window := 15 * time.Minute

			It("rejects the (max+1)-th event inside the window", func() {
				for i := 0; i < 3; i++ {
					ok, _, err := store.Hit(ctx, "a@x.com", now.Add(time.Duration(i)*time.Minute), window, 3)
					Expect(err).NotTo(HaveOccurred())
					Expect(ok).To(BeTrue())
				}

				ok, retry, err := store.Hit(ctx, "a@x.com", now.Add(5*time.Minute), window, 3)
				Expect(err).NotTo(HaveOccurred())
				Expect(ok).To(BeFalse())
				Expect(retry).To(Equal(10 * time.Minute))
			})

			It("does not count rejected events", func() {
				for i := 0; i < 2; i++ {
					ok, _, _ := store.Hit(ctx, "a@x.com", now, window, 2)
					Expect(ok).To(BeTrue())
				}
				for i := 0; i < 5; i++ {
					ok, _, _ := store.Hit(ctx, "a@x.com", now.Add(time.Minute), window, 2)
					Expect(ok).To(BeFalse())
				}

				ok, _, err := store.Hit(ctx, "a@x.com", now.Add(window), window, 2)
				Expect(err).NotTo(HaveOccurred())
				Expect(ok).To(BeTrue())
			})

			It("admits again once the oldest event leaves the window", func() {
				for i := 0; i < 3; i++ {
					ok, _, _ := store.Hit(ctx, "a@x.com", now, window, 3)
					Expect(ok).To(BeTrue())
				}

				ok, _, err := store.Hit(ctx, "a@x.com", now.Add(window), window, 3)
				Expect(err).NotTo(HaveOccurred())
				Expect(ok).To(BeTrue())
			})

			It("keeps separate windows per key", func() {
				ok, _, _ := store.Hit(ctx, "a@x.com", now, window, 1)
				Expect(ok).To(BeTrue())
				ok, _, _ = store.Hit(ctx, "b@x.com", now, window, 1)
				Expect(ok).To(BeTrue())
				ok, _, _ = store.Hit(ctx, "a@x.com", now, window, 1)
				Expect(ok).To(BeFalse())
			})

			It("admits everything without a limit", func() {
				for i := 0; i < 5; i++ {
					ok, _, err := store.Hit(ctx, "a@x.com", now, window, 0)
					Expect(err).NotTo(HaveOccurred())
					Expect(ok).To(BeTrue())
				}
			})
		})
	})
}
