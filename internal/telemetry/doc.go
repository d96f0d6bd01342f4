// Package telemetry records device state history in InfluxDB.
//
// Every time the reconciler applies an action, the device's present map is
// flattened into numeric fields and written to the device_state
// measurement, tagged by device id, name and type. Writes are batched and
// asynchronous, so a slow or offline InfluxDB never stalls the decision
// loop; failures surface through the SetOnError callback.
//
// The History query backs the GET /devices/{id}/history endpoint.
//
// Telemetry is optional: when telemetry.enabled is false the hub runs
// without it and the history endpoint reports the feature unavailable.
package telemetry
