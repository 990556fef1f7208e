package history_test

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/monasticacademy/hostip/pkg/history"
)

var _ = Describe("History store", func() {
	var (
		ctx   context.Context
		store *history.Store
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		store, err = history.Open(":memory:")
		Ω(err).ShouldNot(HaveOccurred())
	})

	AfterEach(func() {
		Ω(store.Close()).Should(Succeed())
	})

	Context("With an empty database", func() {
		It("lists nothing", func() {
			entries, err := store.List(ctx)
			Ω(err).ShouldNot(HaveOccurred())
			Ω(entries).Should(BeEmpty())
		})

		It("clears nothing", func() {
			n, err := store.Clear(ctx)
			Ω(err).ShouldNot(HaveOccurred())
			Ω(n).Should(BeEquivalentTo(0))
		})

		It("cannot delete a missing record", func() {
			err := store.Delete(ctx, 42)
			Ω(err).Should(MatchError(history.ErrNotFound))
		})
	})

	Context("With recorded lookups", func() {
		var before time.Time

		BeforeEach(func() {
			before = time.Now().Add(-time.Second)
			Ω(store.Record(ctx, "example.com", []string{"93.184.216.34", "2606:2800:220:1::248"})).Should(Succeed())
			Ω(store.Record(ctx, "localhost", []string{"127.0.0.1"})).Should(Succeed())
		})

		It("lists one entry per address in insertion order", func() {
			entries, err := store.List(ctx)
			Ω(err).ShouldNot(HaveOccurred())
			Ω(entries).Should(HaveLen(3))

			Ω(entries[0].Hostname).Should(Equal("example.com"))
			Ω(entries[0].Address).Should(Equal("93.184.216.34"))
			Ω(entries[1].Hostname).Should(Equal("example.com"))
			Ω(entries[1].Address).Should(Equal("2606:2800:220:1::248"))
			Ω(entries[2].Hostname).Should(Equal("localhost"))
			Ω(entries[2].Address).Should(Equal("127.0.0.1"))

			Ω(entries[0].ID).Should(BeNumerically("<", entries[1].ID))
			Ω(entries[1].ID).Should(BeNumerically("<", entries[2].ID))
		})

		It("stamps entries with the time of the lookup", func() {
			entries, err := store.List(ctx)
			Ω(err).ShouldNot(HaveOccurred())
			for _, e := range entries {
				Ω(e.Time()).Should(BeTemporally(">=", before.Truncate(time.Second)))
				Ω(e.Time()).Should(BeTemporally("<=", time.Now()))
			}
			Ω(entries[0].ResolvedAt).Should(Equal(entries[1].ResolvedAt))
		})

		It("deletes a single record", func() {
			entries, err := store.List(ctx)
			Ω(err).ShouldNot(HaveOccurred())

			Ω(store.Delete(ctx, entries[1].ID)).Should(Succeed())

			remaining, err := store.List(ctx)
			Ω(err).ShouldNot(HaveOccurred())
			Ω(remaining).Should(HaveLen(2))
			Ω(remaining[0].ID).Should(Equal(entries[0].ID))
			Ω(remaining[1].ID).Should(Equal(entries[2].ID))

			Ω(store.Delete(ctx, entries[1].ID)).Should(MatchError(history.ErrNotFound))
		})

		It("clears every record", func() {
			n, err := store.Clear(ctx)
			Ω(err).ShouldNot(HaveOccurred())
			Ω(n).Should(BeEquivalentTo(3))

			entries, err := store.List(ctx)
			Ω(err).ShouldNot(HaveOccurred())
			Ω(entries).Should(BeEmpty())
		})
	})

	Context("With a database file", func() {
		var dir string

		BeforeEach(func() {
			var err error
			dir, err = os.MkdirTemp("", "hostip-history")
			Ω(err).ShouldNot(HaveOccurred())
		})

		AfterEach(func() {
			os.RemoveAll(dir)
		})

		It("keeps entries across reopening", func() {
			path := filepath.Join(dir, "history.db")

			first, err := history.Open(path)
			Ω(err).ShouldNot(HaveOccurred())
			Ω(first.Record(ctx, "localhost", []string{"::1"})).Should(Succeed())
			Ω(first.Close()).Should(Succeed())

			second, err := history.Open(path)
			Ω(err).ShouldNot(HaveOccurred())
			defer second.Close()

			entries, err := second.List(ctx)
			Ω(err).ShouldNot(HaveOccurred())
			Ω(entries).Should(HaveLen(1))
			Ω(entries[0].Address).Should(Equal("::1"))
		})

		It("fails for a directory that does not exist", func() {
			_, err := history.Open(filepath.Join(dir, "missing", "history.db"))
			Ω(err).Should(HaveOccurred())
		})
	})
})
