// Package devices holds Orii Core's device plugin set.
//
// Each plugin embeds device.Base and declares its identity and parameter
// schema through Spec(). The set mixes three kinds of device:
//
//   - Actuators the decision service drives: the RGB lights and the
//     announcer (which publishes applied messages over MQTT).
//   - Sensors that raise triggers: the air sensor with its escalating
//     alarm bands, the door contact, and the weather mirror.
//   - The hidden inbox, which turns MQTT messages into decision cycles.
//
// Factories returns the set in registration order. That order fixes the
// device ids, so it only ever grows at the end.
package devices
