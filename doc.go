/*
Package framegate provides a performance governor that decides, once per host tick, whether some expensive controlled
work should run based on a sampled frame rate.

A Governor combines three parts:

  - a probe.Probe, which resolves a sample from the first usable source a host exposes, falling back to a safe default
  - a gate.Gate, which applies a disable threshold and a higher enable threshold so that a rate hovering near one cutoff
    does not toggle the work on and off every tick
  - a config snapshot, read once per decision, usually from a *settings.Store

A Governor is installed where the host calls the controlled work:

	store := settings.NewStore(settings.Defaults())
	governor := framegate.New(store)

	update := governor.Wrap(func(host probe.Host) {
		chains.Update()
	})

The framegategrpc and framegateprom packages adapt a Governor and its Gate to gRPC servers and Prometheus.
*/
package framegate
