package bandwidth

// RefreshAccount re-applies the decay-only form of Increase (add_usage = 0)
// to every usage bucket an account holds: staked, free, and each per-asset
// entry (spec.md §4.5). It mutates the usage fields of acct in place but
// never the paired *_time fields, and never persists — callers needing an
// up-to-date read without charging call this directly on a copy or a
// freshly-loaded record.
func RefreshAccount(acct *AccountUsage, now int64, p Params) error {
	net, err := Increase(acct.NetUsage, 0, acct.LatestConsumeTime, now, p)
	if err != nil {
		return err
	}
	acct.NetUsage = net

	free, err := Increase(acct.FreeNetUsage, 0, acct.LatestConsumeFreeTime, now, p)
	if err != nil {
		return err
	}
	acct.FreeNetUsage = free

	for name, bucket := range acct.FreeAssetNetUsage {
		usage, err := Increase(bucket.Usage, 0, bucket.LastTime, now, p)
		if err != nil {
			return err
		}
		acct.FreeAssetNetUsage[name].Usage = usage
	}

	return nil
}
