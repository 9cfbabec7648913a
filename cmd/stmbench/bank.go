package main

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/spf13/cobra"

	stm "github.com/halvardoss/tl2stm"
)

func newBankCommand() *cobra.Command {
	var accounts, workers, iterations int

	cmd := &cobra.Command{
		Use:   "bank",
		Short: "Runs concurrent balance transfers and checks the total is preserved",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBank(accounts, workers, iterations)
		},
	}

	cmd.Flags().IntVar(&accounts, "accounts", 10, "number of accounts")
	cmd.Flags().IntVar(&workers, "workers", 24, "concurrent transfer workers")
	cmd.Flags().IntVar(&iterations, "iterations", 5000, "transfers per worker")

	return cmd
}

func runBank(accounts, workers, iterations int) error {
	m := stm.NewManager()
	if err := m.Create(uint64(accounts*stm.Alignment), stm.Alignment); err != nil {
		return err
	}

	addrOf := func(i int) stm.VirtualAddr {
		return m.Start() + stm.VirtualAddr(i*stm.Alignment)
	}

	// Seed every account with balance 100.
	if err := stm.Atomically(m, func(tx *stm.UpdateTxn) error {
		for i := 0; i < accounts; i++ {
			tx.Write(addrOf(i), []uint64{100})
		}
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
			for i := 0; i < iterations; i++ {
				from, to := rng.Intn(accounts), rng.Intn(accounts)
				if from == to {
					continue
				}
				transfer(m, addrOf(from), addrOf(to), rng)
			}
		}(int64(w))
	}
	wg.Wait()

	total, err := sumAccounts(m, addrOf, accounts)
	if err != nil {
		return err
	}
	stats := m.Stats()
	fmt.Printf("final total=%d (expected %d)\n", total, accounts*100)
	fmt.Printf("commits=%d aborts=%d fast_path=%d\n", stats.Commits, stats.Aborts, stats.FastPaths)
	return nil
}

func transfer(m *stm.Manager, from, to stm.VirtualAddr, rng *rand.Rand) {
	_ = stm.Atomically(m, func(tx *stm.UpdateTxn) error {
		vf := make([]uint64, 1)
		if err := tx.Read(from, vf); err != nil {
			return err
		}
		if vf[0] == 0 {
			return nil
		}
		amount := uint64(rng.Int63n(int64(vf[0])))
		if amount == 0 {
			return nil
		}
		vt := make([]uint64, 1)
		if err := tx.Read(to, vt); err != nil {
			return err
		}
		tx.Write(from, []uint64{vf[0] - amount})
		tx.Write(to, []uint64{vt[0] + amount})
		return nil
	})
}

func sumAccounts(m *stm.Manager, addrOf func(int) stm.VirtualAddr, accounts int) (uint64, error) {
	h := m.Begin(true)
	total := uint64(0)
	for i := 0; i < accounts; i++ {
		buf := make([]uint64, 1)
		if err := m.Read(h, addrOf(i), uint64(stm.Alignment), buf); err != nil {
			return 0, err
		}
		total += buf[0]
	}
	m.End(h)
	return total, nil
}
