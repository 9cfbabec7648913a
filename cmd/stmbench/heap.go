package main

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/spf13/cobra"

	stm "github.com/halvardoss/tl2stm"
)

func newHeapCommand() *cobra.Command {
	var size, workers, insertsPerWorker int

	cmd := &cobra.Command{
		Use:   "heap",
		Short: "Concurrently appends into a binary min-heap, then checks the heap property",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHeap(size, workers, insertsPerWorker)
		},
	}

	cmd.Flags().IntVar(&size, "size", 100, "heap capacity in words")
	cmd.Flags().IntVar(&workers, "workers", 5, "concurrent inserters")
	cmd.Flags().IntVar(&insertsPerWorker, "inserts", 20, "inserts per worker")

	return cmd
}

func runHeap(size, workers, insertsPerWorker int) error {
	// Word 0 holds the heap's end index; words 1..size hold the heap itself.
	m := stm.NewManager()
	if err := m.Create(uint64((size+1)*stm.Alignment), stm.Alignment); err != nil {
		return err
	}

	endAddr := m.Start()
	heapAddr := func(i int) stm.VirtualAddr {
		return m.Start() + stm.VirtualAddr((1+i)*stm.Alignment)
	}

	if err := stm.Atomically(m, func(tx *stm.UpdateTxn) error {
		tx.Write(endAddr, []uint64{0})
		return nil
	}); err != nil {
		return err
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < insertsPerWorker; i++ {
				x := uint64(rng.Intn(500))
				_ = stm.Atomically(m, func(tx *stm.UpdateTxn) error {
					return heapAppend(tx, endAddr, heapAddr, x)
				})
			}
		}(int64(w))
	}
	wg.Wait()

	ok, err := checkHeapProperty(m, endAddr, heapAddr)
	if err != nil {
		return err
	}
	stats := m.Stats()
	fmt.Printf("heap property holds=%v commits=%d aborts=%d\n", ok, stats.Commits, stats.Aborts)
	return nil
}

func heapAppend(tx *stm.UpdateTxn, endAddr stm.VirtualAddr, heapAddr func(int) stm.VirtualAddr, x uint64) error {
	end := make([]uint64, 1)
	if err := tx.Read(endAddr, end); err != nil {
		return err
	}
	curr := int(end[0])
	parent := curr / 2
	for curr != 0 {
		pv := make([]uint64, 1)
		if err := tx.Read(heapAddr(parent), pv); err != nil {
			return err
		}
		if pv[0] <= x {
			break
		}
		tx.Write(heapAddr(curr), pv)
		curr = parent
		parent = parent / 2
	}
	tx.Write(heapAddr(curr), []uint64{x})
	tx.Write(endAddr, []uint64{end[0] + 1})
	return nil
}

func checkHeapProperty(m *stm.Manager, endAddr stm.VirtualAddr, heapAddr func(int) stm.VirtualAddr) (bool, error) {
	h := m.Begin(true)
	defer m.End(h)

	end := make([]uint64, 1)
	if err := m.Read(h, endAddr, uint64(stm.Alignment), end); err != nil {
		return false, err
	}
	n := int(end[0])
	vals := make([]uint64, n)
	for i := 0; i < n; i++ {
		buf := make([]uint64, 1)
		if err := m.Read(h, heapAddr(i), uint64(stm.Alignment), buf); err != nil {
			return false, err
		}
		vals[i] = buf[0]
	}
	for i := 0; i < n; i++ {
		if left := 2 * i; left < n && vals[i] > vals[left] {
			return false, nil
		}
		if right := 2*i + 1; right < n && vals[i] > vals[right] {
			return false, nil
		}
	}
	return true, nil
}
